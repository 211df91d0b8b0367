package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sendtophone/cli/internal/config"
	"github.com/sendtophone/cli/pkg/relay"
	"github.com/sendtophone/cli/pkg/session"
)

// Metadata is set by main from build-time ldflags.
type Metadata struct {
	Version string
	Commit  string
	Date    string
}

var metadata = Metadata{Version: "dev"}

var rootCmd = &cobra.Command{
	Use:   "sendtophone",
	Short: "Send links and text from your desktop to your phone",
	Long: `sendtophone sends the page you are looking at, or a piece of text, to your
phone through the chrome-to-phone relay.

Sign in once with 'sendtophone login', then use 'sendtophone send <url>'.`,
	SilenceUsage: true,
}

func init() {
	registerGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(redirectCmd)
}

func registerGlobalFlags(fs *pflag.FlagSet) {
	fs.String("relay-url", "", "Relay base URL (overrides stored and environment settings)")
	fs.Int("api-version", 0, "Protocol version sent as 'ver'")
	fs.String("extension-id", "", "Extension id the sign-in redirect must target")
	fs.String("store", "", "Session store: file, keyring or memory")
	fs.Bool("debug", false, "Log relay requests to stderr")
}

// applyFlagOverrides copies explicitly set global flags over cfg. The relay
// URL is resolved separately because the stored override sits between the
// flag and the environment.
func applyFlagOverrides(cfg *config.Config, flags *pflag.FlagSet) {
	if v, _ := flags.GetInt("api-version"); v > 0 {
		cfg.APIVersion = v
	}
	if v, _ := flags.GetString("extension-id"); v != "" {
		cfg.ExtensionID = v
	}
	if v, _ := flags.GetString("store"); v != "" {
		cfg.Store = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context, m Metadata) error {
	metadata = m
	return fang.Execute(ctx, rootCmd, fang.WithVersion(m.Version), fang.WithCommit(m.Commit))
}

// app is what a command needs to talk to the relay.
type app struct {
	cfg     config.Config
	session *session.Session
	client  *relay.Client
	logger  zerolog.Logger
}

// newApp combines environment configuration, persistent flags and the stored
// session for cmd.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	applyFlagOverrides(&cfg, flags)

	logger := zerolog.Nop()
	if debug, _ := flags.GetBool("debug"); debug {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			With().
			Timestamp().
			Logger().
			Level(zerolog.DebugLevel)
	}

	store, err := session.Open(cfg.Store, cfg.StorePath)
	if err != nil {
		return nil, err
	}
	sess := session.New(store)

	stored, err := sess.BaseURL()
	if err != nil {
		return nil, err
	}
	flagURL, _ := flags.GetString("relay-url")
	cfg.RelayURL = config.ResolveRelayURL(flagURL, stored, cfg.RelayURL)

	client := relay.NewClient(relay.Config{
		BaseURL:    cfg.RelayURL,
		APIVersion: cfg.APIVersion,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		Logger:     logger,
	})

	logger.Debug().
		Str("relay", client.BaseURL()).
		Int("api_version", client.APIVersion()).
		Str("store", cfg.Store).
		Msg("configured")

	return &app{cfg: cfg, session: sess, client: client, logger: logger}, nil
}

func requireJSONOrEmpty(output string) error {
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	return nil
}
