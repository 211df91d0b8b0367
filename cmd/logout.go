package cmd

import (
	"context"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sendtophone/cli/pkg/relay"
	"github.com/sendtophone/cli/pkg/util"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Unregister this desktop and sign out",
	Long: `Unregister this desktop with the relay and remove the stored session token.

The token is removed even if the relay cannot be reached. The account name is
kept unless --forget is given.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().Bool("forget", false, "Also remove the stored account name")
	logoutCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// LogoutService is the part of the relay sender used by logout.
type LogoutService interface {
	Logout(ctx context.Context) relay.Result
}

// SessionClearer removes stored credentials.
type SessionClearer interface {
	Clear() error
}

// LogoutCmd handles logout independent of cobra.
type LogoutCmd struct {
	sender  LogoutService
	session SessionClearer
}

type LogoutInput struct {
	Forget bool
	Output string
}

func (l LogoutCmd) Logout(ctx context.Context, in LogoutInput) error {
	if err := requireJSONOrEmpty(in.Output); err != nil {
		return err
	}

	result := l.sender.Logout(ctx)
	if in.Forget {
		if err := l.session.Clear(); err != nil {
			return err
		}
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(result)
	}

	if !result.OK() {
		pterm.Warning.Printf("Relay did not confirm unregister: %s\n", util.OrDash(strings.TrimSpace(result.Message)))
	}
	pterm.Success.Println("Signed out")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	forget, _ := cmd.Flags().GetBool("forget")
	output, _ := cmd.Flags().GetString("output")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	l := LogoutCmd{sender: relay.NewSender(a.client, a.session), session: a.session}
	return l.Logout(cmd.Context(), LogoutInput{Forget: forget, Output: output})
}
