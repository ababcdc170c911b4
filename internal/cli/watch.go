package cli

import (
	"fmt"

	"salun/internal/dashboard"
	"salun/internal/store"

	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Mount the dashboard and print live updates until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hooks := dashboard.Hooks{}
			if !quiet {
				hooks.Changed = func(name store.Name) { a.printf("~ %s changed\n", name) }
			}
			var loggedOut bool
			hooks.Logout = func(n dashboard.Notice) {
				loggedOut = true
				a.printf("signed out: %s\n", n)
			}
			return a.withDashboard(cmd.Context(), hooks, func(c *dashboard.Controller) error {
				a.summary(c)
				select {
				case <-cmd.Context().Done():
					return nil
				case <-c.Done():
				}
				if loggedOut {
					return fmt.Errorf("session ended by the backend")
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print notices")
	return cmd
}

func (a *app) summary(c *dashboard.Controller) {
	a.printf("%s dashboard for %s, push %s\n", c.Role(), c.Subject(), c.SessionState())
	for _, name := range store.AllNames {
		if n := c.Store().Len(name); n > 0 {
			a.printf("  %-14s %d\n", name, n)
		}
	}
	if u, ok := c.Store().Get(store.Users, c.Subject()); ok {
		if pts, ok := u.Int("points"); ok {
			a.printf("  %-14s %d\n", "points", pts)
		}
	}
	a.printf("  %-14s %d\n", "unread", c.Unread())
}
