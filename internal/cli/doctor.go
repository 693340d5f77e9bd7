package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"meetingbridge/internal/app"
)

// ErrChecksFailed is returned by doctor when a prerequisite is missing
var ErrChecksFailed = errors.New("some checks failed")

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database and conferencing server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := NewFormatter(cmd.OutOrStdout())

			cfg, err := deps.loadConfig()
			if err != nil {
				f.Check("Configuration", false, err.Error())
				return ErrChecksFailed
			}
			f.Check("Configuration", true, "valid")

			application, err := app.NewApplication(cfg)
			if err != nil {
				f.Check("Startup", false, err.Error())
				return ErrChecksFailed
			}
			defer application.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, cancel := context.WithTimeout(ctx, cfg.BBB.Timeout+5*time.Second)
			defer cancel()

			ok := true
			if err := application.Database().HealthCheck(ctx); err != nil {
				f.Check("Database", false, err.Error())
				ok = false
			} else {
				f.Check("Database", true, cfg.Database.Path)
			}

			if active := application.Types().Active(); len(active) == 0 {
				f.Check("Content types", false, "no meeting-enabled types in "+cfg.Site.TypesFile)
				ok = false
			} else {
				f.Check("Content types", true, strings.Join(active, ", "))
			}

			if version, err := application.Remote().Version(ctx); err != nil {
				f.Check("Conferencing server", false, err.Error())
				ok = false
			} else {
				f.Check("Conferencing server", true, cfg.BBB.BaseURL+" (API "+version+")")
			}

			if !ok {
				f.Warning("Some prerequisites are missing.")
				return ErrChecksFailed
			}
			f.Success("All checks passed.")
			return nil
		},
	}
}
