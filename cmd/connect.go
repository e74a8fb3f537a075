package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/rpcflow/rpcflow/internal/oauth"
	"github.com/rpcflow/rpcflow/internal/stream"
)

var (
	flagServerURL    string
	flagAuthURL      string
	flagTokenURL     string
	flagClientID     string
	flagClientSecret string
	flagRedirectURI  string
	flagScope        string
	flagState        string
	flagAuthTimeout  time.Duration
	flagCalls        []string
	flagVerbose      bool
)

// envConfig holds environment fallbacks for every connect flag.
type envConfig struct {
	ServerURL    string `env:"RPCFLOW_SERVER_URL"`
	AuthURL      string `env:"RPCFLOW_AUTH_URL"`
	TokenURL     string `env:"RPCFLOW_TOKEN_URL"`
	ClientID     string `env:"RPCFLOW_CLIENT_ID"`
	ClientSecret string `env:"RPCFLOW_CLIENT_SECRET"`
	RedirectURI  string `env:"RPCFLOW_REDIRECT_URI" envDefault:"http://127.0.0.1:8736/callback"`
	Scope        string `env:"RPCFLOW_SCOPE"`
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Sign in and attach to the service's event stream",
	Long: `Sign in via the browser-based OAuth2 authorization-code flow, then
attach to the service's JSON-RPC event stream.

Inbound messages arrive on GET <server>/sse; outbound messages are posted
to POST <server>/rpc. Inbound ping requests are answered automatically.

Every flag has an RPCFLOW_* environment fallback, e.g. RPCFLOW_SERVER_URL.

Examples:
  rpcflow connect --server https://svc.example.com \
    --auth-url https://auth.example.com/authorize \
    --token-url https://auth.example.com/token \
    --client-id my-client --client-secret $SECRET

  # Send requests before entering the read loop
  rpcflow connect ... --call subscribe='{"topic":"jobs"}' --call status`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runConnect,
}

func init() {
	f := connectCmd.Flags()
	f.StringVar(&flagServerURL, "server", "", "base URL of the streaming service")
	f.StringVar(&flagAuthURL, "auth-url", "", "OAuth authorization endpoint")
	f.StringVar(&flagTokenURL, "token-url", "", "OAuth token endpoint")
	f.StringVar(&flagClientID, "client-id", "", "OAuth client id")
	f.StringVar(&flagClientSecret, "client-secret", "", "OAuth client secret")
	f.StringVar(&flagRedirectURI, "redirect-uri", "", "local redirect URI for the OAuth callback")
	f.StringVar(&flagScope, "scope", "", "OAuth scope to request")
	f.StringVar(&flagState, "state", "", "fixed CSRF state value (random per flow if unset)")
	f.DurationVar(&flagAuthTimeout, "auth-timeout", 0, "give up waiting for the browser callback after this long (0 = wait forever)")
	f.StringArrayVar(&flagCalls, "call", nil, "request to send before the read loop, method or method=PARAMS_JSON (repeatable)")
	f.BoolVar(&flagVerbose, "verbose", false, "enable debug logging")
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	authCtx := ctx
	if flagAuthTimeout > 0 {
		var cancel context.CancelFunc
		authCtx, cancel = context.WithTimeout(ctx, flagAuthTimeout)
		defer cancel()
	}

	flow := &oauth.Flow{
		Config:   cfg.oauth,
		State:    flagState,
		Launcher: announcingLauncher{out: cmd.OutOrStdout()},
		Logger:   logger,
	}
	token, err := flow.Authenticate(authCtx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	logger.Info("authenticated")

	client := stream.NewClient(stream.ClientConfig{
		ServerURL: cfg.serverURL,
		Token:     token.AccessToken,
		Logger:    logger,
	})

	for _, call := range flagCalls {
		method, params, err := parseCall(call)
		if err != nil {
			return err
		}
		if err := client.Call(ctx, method, params); err != nil {
			return fmt.Errorf("send %s: %w", method, err)
		}
	}

	return client.Run(ctx)
}

// resolvedConfig is the merged flag/env configuration.
type resolvedConfig struct {
	serverURL string
	oauth     oauth.Config
}

// resolveConfig merges environment fallbacks under explicit flags and
// checks that the required values are present.
func resolveConfig() (*resolvedConfig, error) {
	var fallback envConfig
	if err := env.Parse(&fallback); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	pick := func(flagValue, envValue string) string {
		if flagValue != "" {
			return flagValue
		}
		return envValue
	}

	cfg := &resolvedConfig{
		serverURL: pick(flagServerURL, fallback.ServerURL),
		oauth: oauth.Config{
			AuthorizationURL: pick(flagAuthURL, fallback.AuthURL),
			TokenURL:         pick(flagTokenURL, fallback.TokenURL),
			ClientID:         pick(flagClientID, fallback.ClientID),
			ClientSecret:     pick(flagClientSecret, fallback.ClientSecret),
			RedirectURI:      pick(flagRedirectURI, fallback.RedirectURI),
			Scope:            pick(flagScope, fallback.Scope),
		},
	}

	var missing []string
	for _, req := range []struct{ name, value string }{
		{"--server", cfg.serverURL},
		{"--auth-url", cfg.oauth.AuthorizationURL},
		{"--token-url", cfg.oauth.TokenURL},
		{"--client-id", cfg.oauth.ClientID},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}

// parseCall splits a --call value into method and optional JSON params.
func parseCall(value string) (string, any, error) {
	method, rawParams, found := strings.Cut(value, "=")
	if method == "" {
		return "", nil, fmt.Errorf("invalid --call %q: empty method", value)
	}
	if !found {
		return method, nil, nil
	}
	if !json.Valid([]byte(rawParams)) {
		return "", nil, fmt.Errorf("invalid --call %q: params are not valid JSON", value)
	}
	return method, json.RawMessage(rawParams), nil
}

// announcingLauncher prints the authorization URL before opening the
// browser, so the user can open it manually if the launch fails.
type announcingLauncher struct {
	out io.Writer
}

func (l announcingLauncher) Open(url string) error {
	fmt.Fprintf(l.out, "Opening your browser to sign in. If it does not open, visit:\n  %s\n", url)
	return oauth.BrowserLauncher{}.Open(url)
}
