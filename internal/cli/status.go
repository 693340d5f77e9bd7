package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"meetingbridge/internal/app"
	"meetingbridge/pkg/interfaces"
	"meetingbridge/pkg/types"
)

func NewStatusCmd(deps *Dependencies) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <item-id>",
		Short: "Show the meeting state of a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := deps.openApplication()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()
			item, err := loadItem(ctx, application, args[0])
			if err != nil {
				return err
			}

			report, err := application.Meetings().QueryStatus(ctx, *item, types.Account{}, true)
			if err != nil && !(errors.Is(err, types.ErrAlreadyEnded) && report != nil) {
				return fmt.Errorf("failed to query status of %s: %w", item.ID, err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			NewFormatter(cmd.OutOrStdout()).Status(item, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the status report as JSON")
	return cmd
}

func loadItem(ctx context.Context, application *app.Application, id string) (*types.ContentItem, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	item, err := application.Database().GetContentItem(ctx, id)
	if errors.Is(err, interfaces.ErrContentNotFound) {
		return nil, fmt.Errorf("content item %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load content item %s: %w", id, err)
	}
	return item, nil
}
