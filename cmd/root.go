package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/swarmpeer/internal/config"
	"github.com/surge-downloader/swarmpeer/internal/render"
	"github.com/surge-downloader/swarmpeer/internal/utils"
)

// Version information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Flag-backed globals shared by subcommands.
var (
	settingsPath string
	dbPathFlag   string
	noColor      bool
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swarmpeer",
	Short: "Per-round request and unchoke decisions for a swarm peer",
	Long: `swarmpeer decides, one round at a time, which pieces a peer should request
and which requesting peers it should unchoke. Round history and reciprocity
estimates are kept in a local database between invocations.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			render.DisableColor()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Settings file (.json or .yaml); defaults to the app dir")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path; overrides storage.db_path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs for every decision")
	rootCmd.SetVersionTemplate("swarmpeer version {{.Version}}\n")
}

// loadSettings reads the settings file chosen by --config, falling back to
// defaults when it is missing.
func loadSettings() (*config.Settings, error) {
	if settingsPath != "" {
		return config.LoadSettingsFrom(settingsPath)
	}
	return config.LoadSettings()
}

// initializeGlobalState sets up directories and logging, and returns the
// effective settings.
func initializeGlobalState() *config.Settings {
	if err := config.EnsureDirs(); err != nil {
		utils.Debug("Error creating directories: %v", err)
	}

	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading settings: %v\n", err)
		os.Exit(1)
	}
	if dbPathFlag != "" {
		settings.Storage.DBPath = dbPathFlag
	}

	logsDir := config.GetLogsDir()
	if verbose || settings.General.Verbose {
		utils.ConfigureDebug(logsDir)
	}
	if err := utils.CleanupLogs(logsDir, settings.General.LogRetentionCount); err != nil {
		utils.Debug("Error cleaning logs: %v", err)
	}
	return settings
}

func fatalf(format string, args ...any) {
	utils.Debug(format, args...)
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
