package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"salun/internal/dashboard"
	"salun/internal/ledger"

	"github.com/spf13/cobra"
)

func (a *app) ledgerCmd() *cobra.Command {
	var asJSON, newestFirst bool
	cmd := &cobra.Command{
		Use:   "ledger [USER_ID]",
		Short: "Reconstruct a point ledger from the cached history",
		Long: `Reconstruct the running point balance of a user from their history and
current balance. Users see their own ledger; admins may name any user.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var userID string
			if len(args) == 1 {
				userID = args[0]
			}
			return a.withDashboard(cmd.Context(), dashboard.Hooks{Notice: func(dashboard.Notice) {}}, func(c *dashboard.Controller) error {
				l, err := c.Ledger(cmd.Context(), userID)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(a.out)
					enc.SetIndent("", "  ")
					return enc.Encode(l)
				}
				entries := l.Entries
				if newestFirst {
					entries = l.NewestFirst()
				}
				a.printLedger(l, entries)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ledger as JSON")
	cmd.Flags().BoolVar(&newestFirst, "newest-first", false, "List the newest entry first")
	return cmd
}

func (a *app) printLedger(l ledger.Ledger, entries []ledger.Entry) {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tKIND\tDELTA\tBALANCE\tNOTE")
	for _, e := range entries {
		date := "-"
		if !e.OccurredAt.IsZero() {
			date = e.OccurredAt.Local().Format("2006-01-02 15:04")
		}
		note := ""
		if e.Flagged() {
			note = string(e.Issue)
		}
		fmt.Fprintf(w, "%s\t%s\t%+d\t%d\t%s\n", date, e.Kind, e.SignedDelta, e.RunningBalance, note)
	}
	w.Flush()
	a.printf("balance %d (offset %d, %d entries, %d flagged)\n", l.Balance, l.Offset, len(l.Entries), l.Flagged())
}
