package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sendtophone/cli/pkg/relay"
	"github.com/sendtophone/cli/pkg/signin"
	"github.com/sendtophone/cli/pkg/table"
	"github.com/sendtophone/cli/pkg/util"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and register this desktop with the relay",
	Long: `Sign in with your account and register this desktop with the relay.

The sign-in page opens in your browser. When it finishes it redirects to the
extension page with a short-lived auth token. Paste that URL back here, or use
--listen to have the redirect delivered to a local callback.`,
	Example: `  # Open the sign-in page and paste the redirect URL
  sendtophone login

  # Receive the redirect on a loopback callback
  sendtophone login --listen

  # Finish a sign-in started elsewhere
  sendtophone login --redirect-url 'chrome-extension://.../help.html#just_signed_in?auth=...'`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().Bool("no-browser", false, "Print the sign-in URL without opening a browser")
	loginCmd.Flags().String("redirect-url", "", "Redirect URL carrying the auth token")
	loginCmd.Flags().String("auth-token", "", "Auth token to exchange directly")
	loginCmd.Flags().Bool("listen", false, "Receive the redirect on a loopback callback")
	loginCmd.Flags().Duration("wait", 5*time.Minute, "How long to wait for the redirect with --listen")
	loginCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

// TokenExchanger trades an auth token for a session token.
type TokenExchanger interface {
	Exchange(ctx context.Context, authToken string) (relay.Registration, error)
}

// CallbackListener receives a sign-in redirect.
type CallbackListener interface {
	CallbackURL() string
	Wait(ctx context.Context) (string, error)
	Close() error
}

// LoginCmd handles sign-in independent of cobra.
type LoginCmd struct {
	exchanger  TokenExchanger
	redirector *signin.Redirector
	deviceID   func() (string, error)
	openURL    func(url string) error
	prompt     func(text string) (string, error)
	listen     func(r *signin.Redirector) (CallbackListener, error)
}

type LoginInput struct {
	RedirectURL string
	AuthToken   string
	NoBrowser   bool
	Listen      bool
	Wait        time.Duration
	Output      string
}

func (l LoginCmd) Login(ctx context.Context, in LoginInput) error {
	if err := requireJSONOrEmpty(in.Output); err != nil {
		return err
	}

	authToken, err := l.authToken(ctx, in)
	if err != nil {
		return err
	}

	info, err := signin.InspectAuthToken(authToken)
	if err != nil {
		return fmt.Errorf("cannot sign in: %w", err)
	}
	if info.Email != "" && in.Output != "json" {
		pterm.Info.Printf("Signing in as %s...\n", info.Email)
	}

	reg, err := l.exchanger.Exchange(ctx, authToken)
	if err != nil {
		if in.Output != "json" {
			pterm.Error.Println("Sign-in failed. You are still signed out.")
		}
		return fmt.Errorf("token exchange failed: %w", err)
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(struct {
			Account string `json:"account"`
		}{reg.Account})
	}

	pterm.Success.Printf("Signed in as %s\n", util.OrDash(reg.Account))
	return nil
}

func (l LoginCmd) authToken(ctx context.Context, in LoginInput) (string, error) {
	if in.AuthToken != "" {
		return in.AuthToken, nil
	}
	if in.RedirectURL != "" {
		return l.redirector.Accept(in.RedirectURL)
	}

	devRegID, err := l.deviceID()
	if err != nil {
		return "", err
	}

	var listener CallbackListener
	callback := ""
	if in.Listen {
		listener, err = l.listen(l.redirector)
		if err != nil {
			return "", err
		}
		defer listener.Close()
		callback = listener.CallbackURL()
	}

	loginURL := signin.LoginURL(l.redirector.Config(), devRegID, callback)
	pterm.Info.Println("Open this URL in your browser to sign in:")
	pterm.Println()
	pterm.Println(fmt.Sprintf("  %s", loginURL))
	pterm.Println()
	if !in.NoBrowser {
		if err := l.openURL(loginURL); err != nil {
			pterm.Warning.Printf("Could not open browser automatically: %v\n", err)
		} else {
			pterm.Info.Println("(Opened in browser)")
		}
	}

	if listener != nil {
		pterm.Info.Println("Waiting for the sign-in redirect...")
		waitCtx, cancel := context.WithTimeout(ctx, in.Wait)
		defer cancel()
		token, err := listener.Wait(waitCtx)
		if err != nil {
			return "", fmt.Errorf("no sign-in redirect received: %w", err)
		}
		return token, nil
	}

	href, err := l.prompt("Paste the URL of the page you were redirected to")
	if err != nil {
		return "", err
	}
	return l.redirector.Accept(strings.TrimSpace(href))
}

func runLogin(cmd *cobra.Command, args []string) error {
	noBrowser, _ := cmd.Flags().GetBool("no-browser")
	redirectURL, _ := cmd.Flags().GetString("redirect-url")
	authToken, _ := cmd.Flags().GetString("auth-token")
	listen, _ := cmd.Flags().GetBool("listen")
	wait, _ := cmd.Flags().GetDuration("wait")
	output, _ := cmd.Flags().GetString("output")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	redirector, err := a.redirector()
	if err != nil {
		return err
	}

	l := LoginCmd{
		exchanger:  relay.NewExchanger(a.client, a.session),
		redirector: redirector,
		deviceID:   a.session.DeviceRegistrationID,
		openURL:    browser.OpenURL,
		prompt: func(text string) (string, error) {
			return pterm.DefaultInteractiveTextInput.Show(text)
		},
		listen: func(r *signin.Redirector) (CallbackListener, error) {
			ln, err := signin.NewListener(r, "127.0.0.1:0", a.logger)
			if err != nil {
				return nil, err
			}
			return ln, nil
		},
	}
	return l.Login(cmd.Context(), LoginInput{
		RedirectURL: redirectURL,
		AuthToken:   authToken,
		NoBrowser:   noBrowser,
		Listen:      listen,
		Wait:        wait,
		Output:      output,
	})
}

func (a *app) redirector() (*signin.Redirector, error) {
	return signin.NewRedirector(signin.Config{
		RelayBaseURL: a.client.BaseURL(),
		APIVersion:   a.client.APIVersion(),
		ExtensionID:  a.cfg.ExtensionID,
	})
}

var redirectCmd = &cobra.Command{
	Use:   "redirect <auth-token> [sign-in-page-url]",
	Short: "Print the redirect the hosted sign-in page must produce",
	Long: `Print the destination URL the hosted sign-in page must redirect to after
authenticating, for the configured extension id. Useful when preparing
environment-specific builds of the sign-in page.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		r, err := a.redirector()
		if err != nil {
			return err
		}
		page := ""
		if len(args) > 1 {
			page = args[1]
		}
		dest, err := r.Destination(args[0], page)
		if err != nil {
			return err
		}

		table.PrintTableNoPad(pterm.TableData{
			{"Property", "Value"},
			{"Extension ID", r.Config().ExtensionID},
			{"Target", r.Target()},
		}, true)
		pterm.Println()
		pterm.Println(dest)
		return nil
	},
}
