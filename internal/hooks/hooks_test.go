package hooks

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

func intPtr(i int) *int { return &i }

var testItem = types.ContentItem{ID: "5f1d7c9e-2b3a-4c4d-8e5f-60718293a4b5", Type: "event", Title: "Sync", OwnerID: "42"}

func TestRegistry_InterfaceCompliance(t *testing.T) {
	var _ interfaces.ParameterAlterer = (*Registry)(nil)
	var _ interfaces.SessionAlterer = (*Registry)(nil)
	var _ interfaces.ParameterAlterer = TypeLimits{}
	var _ interfaces.SessionAlterer = ModeratorLinkPolicy{}
}

func TestRegistry_RunsInOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		r.AddParameterAlterer(name, ParameterFunc(func(ctx context.Context, hc types.HookContext, p *types.MeetingParams) error {
			order = append(order, name)
			v := name
			p.MeetingName = &v
			return nil
		}))
	}

	p := &types.MeetingParams{}
	if err := r.AlterParameters(context.Background(), types.HookContext{Op: types.OpCreate}, p); err != nil {
		t.Fatalf("AlterParameters failed: %v", err)
	}

	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected order %v, got %v", want, order)
	}
	if *p.MeetingName != "third" {
		t.Errorf("Expected the last hook's value, got %q", *p.MeetingName)
	}

	names, _ := r.Names()
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected names %v, got %v", want, names)
	}
}

func TestRegistry_VetoStopsChain(t *testing.T) {
	r := NewRegistry()
	veto := errors.New("not today")
	ran := false
	r.AddSessionAlterer("gate", SessionFunc(func(ctx context.Context, hc types.HookContext, s *types.ResolvedSession) error {
		return veto
	}))
	r.AddSessionAlterer("after", SessionFunc(func(ctx context.Context, hc types.HookContext, s *types.ResolvedSession) error {
		ran = true
		return nil
	}))

	err := r.AlterSession(context.Background(), types.HookContext{}, &types.ResolvedSession{})
	if !errors.Is(err, veto) {
		t.Fatalf("Expected veto error, got %v", err)
	}
	if ran {
		t.Error("Hooks after a veto must not run")
	}
}

func TestRegistry_Empty(t *testing.T) {
	r := NewRegistry()
	if err := r.AlterParameters(context.Background(), types.HookContext{}, &types.MeetingParams{}); err != nil {
		t.Errorf("Empty registry returned %v", err)
	}
	if err := r.AlterSession(context.Background(), types.HookContext{}, &types.ResolvedSession{}); err != nil {
		t.Errorf("Empty registry returned %v", err)
	}
}

func TestTypeLimits(t *testing.T) {
	limits := TypeLimits{MaxParticipants: 50, MaxDuration: 120}

	tests := []struct {
		name       string
		configured *int
		hooked     *int
		want       *int
	}{
		{"unset type setting gets the cap", nil, nil, intPtr(50)},
		{"type setting within cap is kept", intPtr(20), nil, nil},
		{"type setting above cap is capped", intPtr(500), nil, intPtr(50)},
		{"earlier hook within cap is kept", nil, intPtr(10), intPtr(10)},
		{"earlier hook above cap falls back to type setting", intPtr(20), intPtr(80), nil},
		{"earlier hook above cap without type setting is capped", nil, intPtr(80), intPtr(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := types.HookContext{Config: types.TypeConfig{MaxParticipants: tt.configured}}
			p := &types.MeetingParams{MaxParticipants: tt.hooked}
			if err := limits.AlterParameters(context.Background(), hc, p); err != nil {
				t.Fatalf("AlterParameters failed: %v", err)
			}
			if !reflect.DeepEqual(p.MaxParticipants, tt.want) {
				t.Errorf("Expected %v, got %v", deref(tt.want), deref(p.MaxParticipants))
			}
		})
	}
}

func TestTypeLimits_Duration(t *testing.T) {
	limits := TypeLimits{MaxDuration: 120}
	hc := types.HookContext{Config: types.TypeConfig{Duration: intPtr(240)}}
	p := &types.MeetingParams{}

	limits.AlterParameters(context.Background(), hc, p)
	if p.Duration == nil || *p.Duration != 120 {
		t.Errorf("Expected duration cap 120, got %v", deref(p.Duration))
	}
	if p.MaxParticipants != nil {
		t.Error("Zero cap must leave participants alone")
	}
}

func deref(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func TestModeratorLinkPolicy(t *testing.T) {
	tests := []struct {
		name         string
		account      types.Account
		wantAttend   bool
		wantModerate bool
	}{
		{"anonymous", types.Account{}, false, false},
		{"attendee", types.Account{ID: "7", Permissions: []string{types.PermissionAttend}}, true, false},
		{"owner", types.Account{ID: "42", Permissions: []string{types.PermissionModerateOwn}}, true, true},
		{"administrator", types.Account{ID: "1", Permissions: []string{types.PermissionAdminister}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &types.ResolvedSession{JoinURLs: &types.JoinURLs{Attend: "a", Moderate: "m"}}
			hc := types.HookContext{Op: types.OpResolve, Item: testItem, Requester: tt.account}
			if err := (ModeratorLinkPolicy{}).AlterSession(context.Background(), hc, s); err != nil {
				t.Fatalf("AlterSession failed: %v", err)
			}
			if (s.JoinURLs.Attend != "") != tt.wantAttend {
				t.Errorf("Attend link present = %v, want %v", s.JoinURLs.Attend != "", tt.wantAttend)
			}
			if (s.JoinURLs.Moderate != "") != tt.wantModerate {
				t.Errorf("Moderate link present = %v, want %v", s.JoinURLs.Moderate != "", tt.wantModerate)
			}
		})
	}
}

func TestModeratorLinkPolicy_NoLinks(t *testing.T) {
	s := &types.ResolvedSession{}
	if err := (ModeratorLinkPolicy{}).AlterSession(context.Background(), types.HookContext{}, s); err != nil {
		t.Errorf("Expected no error without links, got %v", err)
	}
}
