package cli

import (
	"os"

	"github.com/spf13/cobra"
	"meetingbridge/internal/app"
	"meetingbridge/internal/config"
)

// Version is set at build time with -ldflags "-X meetingbridge/internal/cli.Version=..."
var Version = "dev"

// ConfigFileEnv names the configuration file when --config is not given
const ConfigFileEnv = "MEETINGBRIDGE_CONFIG_FILE"

// Dependencies are shared by all commands
type Dependencies struct {
	ConfigPath string

	// Signals replaces OS signal delivery for serve; nil means os/signal
	Signals <-chan os.Signal
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meetingbridge",
		Short:         "Bind content items to BigBlueButton meetings",
		Long:          "meetingbridge creates, resolves and ends the BigBlueButton meeting of each meeting-enabled content item of a content-management site.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = Version

	if deps.ConfigPath == "" {
		deps.ConfigPath = os.Getenv(ConfigFileEnv)
	}
	rootCmd.PersistentFlags().StringVarP(&deps.ConfigPath, "config", "c", deps.ConfigPath, "JSON configuration file")

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewStatusCmd(deps))
	rootCmd.AddCommand(NewEndCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))

	return rootCmd
}

func (d *Dependencies) loadConfig() (*config.Config, error) {
	return config.Load(d.ConfigPath)
}

// openApplication builds the application without serving it
func (d *Dependencies) openApplication() (*app.Application, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.NewApplication(cfg)
}
