package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/PolarWolf314/crypthru/internal/configs"
	"github.com/PolarWolf314/crypthru/internal/ui"
	"github.com/spf13/cobra"
)

var (
	configInitForce bool
	configShowJSON  bool

	// ConfigCmd is the top-level config command.
	ConfigCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage crypthru settings",
		Long: `Provides commands for managing the user settings file.

Settings are read from $XDG_CONFIG_HOME/crypthru/config.toml (or the file
named by CRYPTHRU_CONFIG) and hold the defaults that flags override:
the keystore directory, the crypto backend, the gpg binary, the watch
stop file and whether runs are audited.

Examples:
  # Write the default settings
  crypthru config init

  # Show the effective settings
  crypthru config show`,
	}
)

func init() {
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "overwrite existing settings")
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "output in JSON format")
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configShowCmd)
}

// resetConfigState resets the config commands' global state for testing.
func resetConfigState() {
	configInitForce = false
	configShowJSON = false
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config init command")
		path, err := configs.SettingsPath()
		if err != nil {
			return err
		}
		Logger.Debugf("Writing settings to %s (force=%t)", path, configInitForce)

		settings, err := configs.InitSettings(path, configInitForce)
		if err != nil {
			fmt.Println(ui.Failed("Settings were not written"))
			fmt.Println(ui.Hint("Use " + ui.Flag.Sprint("--force") + " to overwrite " + ui.Path.Sprint(path)))
			return err
		}
		fmt.Println(ui.Done("Settings written to " + ui.Path.Sprint(path)))
		printSettings(settings)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting config show command")
		env, err := loadEnvironment()
		if err != nil {
			return err
		}

		if configShowJSON {
			output, err := json.MarshalIndent(env.settings, "", "  ")
			if err != nil {
				return Logger.ErrorfAndReturn("Failed to marshal settings to JSON: %v", err)
			}
			fmt.Println(string(output))
			return nil
		}
		path, err := configs.SettingsPath()
		if err != nil {
			return err
		}
		fmt.Println(ui.Info.Sprint("Settings") + " (" + ui.Path.Sprint(path) + "):")
		fmt.Println()
		printSettings(env.settings)
		return nil
	},
}

func printSettings(s *configs.Settings) {
	fmt.Printf("  %-12s %s\n", "Keystore:", ui.Path.Sprint(s.Keystore))
	fmt.Printf("  %-12s %s\n", "Backend:", ui.Success.Sprint(s.Backend))
	fmt.Printf("  %-12s %s\n", "GPG binary:", ui.Code.Sprint(s.GPGBinary))
	fmt.Printf("  %-12s %s\n", "Stop file:", s.StopFile)
	fmt.Printf("  %-12s %t\n", "Audit:", s.Audit)
	if s.InstallID != "" {
		fmt.Printf("  %-12s %s\n", "Install ID:", ui.Muted.Sprint(s.InstallID))
	}
}
