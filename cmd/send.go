package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/sendtophone/cli/pkg/relay"
	"github.com/sendtophone/cli/pkg/util"
)

var sendCmd = &cobra.Command{
	Use:   "send <url> [title]",
	Short: "Send a link to your phone",
	Long: `Send a link, optionally with a text selection, to your phone.

The selection can be provided as:
- The --selection flag
- From stdin (--selection -)
- From a file (using --file)`,
	Example: `  # Send a link
  sendtophone send https://example.com "Example Domain"

  # Send a link with highlighted text
  sendtophone send https://example.com --selection "some text"

  # Pipe a selection from stdin
  pbpaste | sendtophone send https://example.com --selection -

  # Output the result as JSON for scripting
  sendtophone send https://example.com -o json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringP("selection", "s", "", "Selected text to send along with the link ('-' reads stdin)")
	sendCmd.Flags().StringP("file", "f", "", "Read the selection from a file")
	sendCmd.Flags().StringP("type", "t", "", "Message type: link, selection or page (default: selection when text is given, otherwise link)")
	sendCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// SendService is the part of the relay sender used by send.
type SendService interface {
	Send(ctx context.Context, msg relay.Message) relay.Result
}

// SendCmd handles sending independent of cobra.
type SendCmd struct {
	sender SendService
}

type SendInput struct {
	URL       string
	Title     string
	Selection string
	Type      string
	Output    string
}

func (s SendCmd) Send(ctx context.Context, in SendInput) error {
	if err := requireJSONOrEmpty(in.Output); err != nil {
		return err
	}

	typ := in.Type
	if typ == "" {
		typ = lo.Ternary(in.Selection != "", string(relay.TypeSelection), string(relay.TypeLink))
	}
	msgType, err := relay.ParseMessageType(typ)
	if err != nil {
		return err
	}

	msg := relay.Message{
		Title:     in.Title,
		URL:       in.URL,
		Selection: in.Selection,
		Type:      msgType,
	}
	if err := msg.Validate(); err != nil {
		return err
	}

	if in.Output != "json" {
		pterm.Info.Printf("Sending %s to phone...\n", lo.Ternary(in.Title != "", in.Title, in.URL))
	}

	result := s.sender.Send(ctx, msg)
	if in.Output == "json" {
		if err := util.PrintPrettyJSON(result); err != nil {
			return err
		}
		return result.Err()
	}
	return reportResult(result, "Sent to phone")
}

// reportResult prints a relay result and returns its error form.
func reportResult(result relay.Result, successMsg string) error {
	switch result.Status {
	case relay.StatusSuccess:
		pterm.Success.Println(successMsg)
	case relay.StatusLoginRequired:
		pterm.Warning.Println("Login required. Run 'sendtophone login' to sign in.")
	case relay.StatusDeviceNotRegistered:
		pterm.Warning.Println("Your phone is not registered. Set up the app on your phone and try again.")
	default:
		pterm.Error.Printf("Relay error: %s\n", util.OrDash(strings.TrimSpace(result.Message)))
	}
	return result.Err()
}

func readSelection(selection, filePath string) (string, error) {
	if filePath != "" {
		content, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return strings.TrimSpace(string(content)), nil
	}
	if selection != "-" {
		return selection, nil
	}
	content, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}

func runSend(cmd *cobra.Command, args []string) error {
	selectionFlag, _ := cmd.Flags().GetString("selection")
	filePath, _ := cmd.Flags().GetString("file")
	typ, _ := cmd.Flags().GetString("type")
	output, _ := cmd.Flags().GetString("output")

	selection, err := readSelection(selectionFlag, filePath)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	in := SendInput{
		URL:       args[0],
		Selection: selection,
		Type:      typ,
		Output:    output,
	}
	if len(args) > 1 {
		in.Title = args[1]
	}

	s := SendCmd{sender: relay.NewSender(a.client, a.session)}
	return s.Send(cmd.Context(), in)
}
