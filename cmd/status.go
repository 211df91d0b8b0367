package cmd

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/sendtophone/cli/pkg/session"
	"github.com/sendtophone/cli/pkg/table"
	"github.com/sendtophone/cli/pkg/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// SnapshotReader reads the stored session.
type SnapshotReader interface {
	Snapshot() (session.Snapshot, error)
}

// StatusCmd reports session state independent of cobra.
type StatusCmd struct {
	session  SnapshotReader
	relayURL string
	store    string
}

type StatusInput struct {
	Output string
}

type statusView struct {
	LoggedIn             bool   `json:"loggedIn"`
	Account              string `json:"account,omitempty"`
	DeviceRegistrationID string `json:"deviceRegistrationId,omitempty"`
	RelayURL             string `json:"relayUrl"`
	RelayURLOverride     string `json:"relayUrlOverride,omitempty"`
	Store                string `json:"store"`
}

func (s StatusCmd) Status(ctx context.Context, in StatusInput) error {
	if err := requireJSONOrEmpty(in.Output); err != nil {
		return err
	}

	snap, err := s.session.Snapshot()
	if err != nil {
		return err
	}

	view := statusView{
		LoggedIn:             snap.LoggedIn(),
		Account:              snap.Account,
		DeviceRegistrationID: snap.DeviceRegistrationID,
		RelayURL:             s.relayURL,
		RelayURLOverride:     snap.BaseURL,
		Store:                s.store,
	}
	if in.Output == "json" {
		return util.PrintPrettyJSON(view)
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Signed In", lo.Ternary(view.LoggedIn, "yes", "no")})
	rows = append(rows, []string{"Session Token", util.Redact(snap.Token)})
	rows = append(rows, []string{"Account", util.OrDash(view.Account)})
	rows = append(rows, []string{"Device Registration ID", util.OrDash(view.DeviceRegistrationID)})
	rows = append(rows, []string{"Relay", view.RelayURL})
	if view.RelayURLOverride != "" {
		rows = append(rows, []string{"Relay Override", view.RelayURLOverride})
	}
	rows = append(rows, []string{"Store", view.Store})
	table.PrintTableNoPad(rows, true)

	if !view.LoggedIn {
		pterm.Info.Println("Run 'sendtophone login' to sign in.")
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	s := StatusCmd{session: a.session, relayURL: a.client.BaseURL(), store: a.cfg.Store}
	return s.Status(cmd.Context(), StatusInput{Output: output})
}
