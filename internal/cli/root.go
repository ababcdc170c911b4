// Package cli is the salun command line: sign in, watch a live dashboard and
// inspect point ledgers against a salun backend.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"salun/config"
	"salun/internal/credentials"
	"salun/internal/dashboard"
	"salun/internal/logger"
	"salun/internal/remote"

	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfgPath string
	apiURL  string
	wsURL   string
	credsAt string

	cfg *config.Config
	out io.Writer

	// newBackend is swapped in tests.
	newBackend func(token string) *remote.Client
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "salun",
		Short:         "Loyalty points client",
		Long:          `salun signs in to a salun backend, keeps a live copy of the dashboard and reconstructs point ledgers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.cfgPath, "config", "c", "salun.toml", "Path to the TOML config file")
	f.StringVar(&a.apiURL, "api", "", "Backend REST base URL (overrides config)")
	f.StringVar(&a.wsURL, "ws", "", "Backend push URL (overrides config)")
	f.StringVar(&a.credsAt, "credentials", "", "Credentials database path (overrides config)")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.watchCmd(),
		a.ledgerCmd(),
		a.scanCmd(),
		a.redeemCmd(),
		a.adjustCmd(),
		a.statusCmd(),
		a.markReadCmd(),
		a.serveCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.Client.APIURL = a.apiURL
	}
	if a.wsURL != "" {
		cfg.Client.WSURL = a.wsURL
	}
	if a.credsAt != "" {
		cfg.Client.CredentialsPath = a.credsAt
	}
	logger.Init(cfg.Server.Env, cfg.Log.Level)
	a.cfg = cfg
	a.out = cmd.OutOrStdout()
	if a.newBackend == nil {
		a.newBackend = func(token string) *remote.Client {
			return remote.New(a.cfg.Client.APIURL, token, a.cfg.Client.Timeout)
		}
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) credentials() (*credentials.Store, error) {
	s, err := credentials.Open(a.cfg.Client.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("open credentials: %w", err)
	}
	return s, nil
}

// principal loads the signed-in principal, or explains how to sign in.
func (a *app) principal(creds *credentials.Store) (*credentials.Principal, error) {
	p, err := creds.Load()
	if err != nil {
		if errors.Is(err, credentials.ErrNotSignedIn) {
			return nil, fmt.Errorf("not signed in; run 'salun login' first")
		}
		return nil, err
	}
	return p, nil
}

// withDashboard mounts a dashboard for the stored principal, runs f and
// unmounts it. Notices are printed as they arrive.
func (a *app) withDashboard(ctx context.Context, hooks dashboard.Hooks, f func(c *dashboard.Controller) error) error {
	creds, err := a.credentials()
	if err != nil {
		return err
	}
	defer creds.Close()

	p, err := a.principal(creds)
	if err != nil {
		return err
	}
	if hooks.Notice == nil {
		hooks.Notice = func(n dashboard.Notice) { a.printf("%s\n", n) }
	}
	if hooks.Logout == nil {
		hooks.Logout = func(n dashboard.Notice) { a.printf("signed out: %s\n", n) }
	}
	c := dashboard.New(a.newBackend(p.Token), dashboard.Options{
		Role:              p.Role,
		SubjectID:         p.UserID,
		Token:             p.Token,
		WSURL:             a.cfg.Client.WSURL,
		ReconnectAttempts: a.cfg.Sync.ReconnectAttempts,
		ReconnectDelay:    a.cfg.Sync.ReconnectDelay,
		RefreshInterval:   a.cfg.Sync.RefreshInterval,
		RefreshBurst:      a.cfg.Sync.RefreshBurst,
		Hooks:             hooks,
		Credentials:       creds,
	})
	if err := c.Mount(ctx); err != nil {
		return err
	}
	defer c.Unmount()
	return f(c)
}
