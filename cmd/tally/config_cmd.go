package main

import (
	"strings"

	"github.com/ramarlina/tally-cli/pkg/config"
	"github.com/ramarlina/tally-cli/pkg/output"
	"github.com/spf13/cobra"
)

var builtinKeys = []string{"api_url", "currency", "locale", "output.format", "timeout"}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configLsCmd, configGetCmd, configSetCmd, configUnsetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage local settings",
	Long: "View and modify CLI configuration.\n\nBuilt-in keys: " + strings.Join(builtinKeys, ", ") +
		"\nAny other key is stored as a custom setting.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// printSettings renders key/value pairs as a structured result, key=value
// lines in raw mode or a table.
func printSettings(out *output.Printer, settings map[string]string) error {
	if out.IsStructured() {
		return out.Success(settings)
	}

	keys := config.Keys(settings)
	if out.IsRaw() {
		for _, k := range keys {
			out.Printf("%s=%s\n", k, settings[k])
		}
		return nil
	}

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		v := settings[k]
		if v == "" {
			v = "(not set)"
		}
		rows = append(rows, []string{k, v})
	}
	return out.Table([]string{"Key", "Value"}, rows)
}

var configLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all config settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		settings, err := config.List()
		if err != nil {
			return out.Error(err)
		}
		return printSettings(out, settings)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		value, err := config.Get(args[0])
		if err != nil {
			return out.Error(err)
		}
		// raw prints the bare value so it can be used in scripts
		if out.IsRaw() {
			out.Println(value)
			return nil
		}
		return printSettings(out, map[string]string{args[0]: value})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return out.Error(err)
		}
		if out.IsStructured() {
			return out.Success(map[string]string{key: value})
		}
		out.Done("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Restore a built-in key to its default or remove a custom key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := getOutputPrinter()
		if err := config.Unset(args[0]); err != nil {
			return out.Error(err)
		}
		value, _ := config.Get(args[0])
		if out.IsStructured() {
			return out.Success(map[string]string{args[0]: value})
		}
		out.Done("Unset %s", args[0])
		return nil
	},
}
