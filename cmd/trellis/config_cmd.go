package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/langadventurellc/trellis-mcp-sub003/internal/config"
	"github.com/langadventurellc/trellis-mcp-sub003/internal/debug"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   "Read and write trellis settings",
		GroupID: "setup",
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the resolved value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if !config.IsKnownKey(key) {
				return fmt.Errorf("unknown config key %q", key)
			}
			value := config.Viper().Get(key)
			if a.jsonOutput() {
				return outputJSON(a.out, map[string]interface{}{"key": key, "value": value})
			}
			fmt.Fprintln(a.out, value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting to the project's .trellis/config.yaml",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.SetYamlConfig(args[0], args[1])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return outputJSON(a.out, map[string]string{"key": args[0], "value": args[1], "file": p})
			}
			debug.PrintNormal("Set %s = %s in %s\n", args[0], args[1], p)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every known setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.Viper()
			values := make(map[string]interface{}, len(config.KnownKeys))
			for _, k := range config.SortedKeys() {
				values[k] = v.Get(k)
			}
			if a.jsonOutput() {
				return outputJSON(a.out, values)
			}
			for _, k := range config.SortedKeys() {
				fmt.Fprintf(a.out, "%s = %v\n", k, values[k])
			}
			if used := config.ConfigFileUsed(); used != "" {
				fmt.Fprintf(a.out, "\n(from %s)\n", used)
			}
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd, listCmd)
	return cmd
}
