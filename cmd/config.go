package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stored client settings",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var configSetURLCmd = &cobra.Command{
	Use:     "set-url <relay-url>",
	Short:   "Store a relay base URL override",
	Long:    "Store a relay base URL to use instead of the default, for development against a custom server.",
	Example: "  sendtophone config set-url http://localhost:8080",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.TrimRight(strings.TrimSpace(args[0]), "/")
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid relay url %q: expected http(s)://host", args[0])
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.session.SetBaseURL(raw); err != nil {
			return err
		}
		pterm.Success.Printf("Relay URL set to %s\n", raw)
		return nil
	},
}

var configUnsetURLCmd = &cobra.Command{
	Use:   "unset-url",
	Short: "Remove the stored relay base URL override",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		if err := a.session.SetBaseURL(""); err != nil {
			return err
		}
		pterm.Success.Println("Relay URL override removed")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetURLCmd)
	configCmd.AddCommand(configUnsetURLCmd)
}
