package cmd

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/swarmpeer/internal/config"
	"github.com/surge-downloader/swarmpeer/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()
		printSettings(cmd.OutOrStdout(), settings)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings and database paths",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		settings := initializeGlobalState()
		path := settingsPath
		if path == "" {
			path = config.GetSettingsPath()
		}
		fmt.Fprintf(cmd.OutOrStdout(), "settings: %s\ndatabase: %s\nlogs:     %s\n", path, settings.DBPath(), config.GetLogsDir())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default settings to the settings file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		initializeGlobalState()
		if err := saveSettings(config.DefaultSettings()); err != nil {
			fatalf("save settings: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Wrote default settings.")
	},
}

// printSettings lists every setting by category in metadata order.
func printSettings(w io.Writer, s *config.Settings) {
	meta := config.GetSettingsMetadata()
	root := reflect.ValueOf(s).Elem()
	for _, cat := range config.CategoryOrder() {
		fmt.Fprintln(w, render.TitleStyle.Render(cat))
		section := root.FieldByName(cat)
		for _, m := range meta[cat] {
			fmt.Fprintf(w, "  %-22s %v\n", m.Key, settingValue(section, m.Key))
		}
	}
}

// settingValue finds the field of section whose json tag is key.
func settingValue(section reflect.Value, key string) any {
	t := section.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if tag == key {
			return section.Field(i).Interface()
		}
	}
	return render.DimStyle.Render("?")
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}
