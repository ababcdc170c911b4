package cli

import (
	"fmt"
	"strconv"

	"salun/internal/dashboard"
	"salun/internal/domain"

	"github.com/spf13/cobra"
)

// Write commands mount a dashboard so the cached checks (balance, role)
// apply exactly as they do for a long-running watcher.

func (a *app) scanCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "scan BARCODE",
		Short: "Submit a scanned barcode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDashboard(cmd.Context(), dashboard.Hooks{}, func(c *dashboard.Controller) error {
				res, err := c.ScanBarcode(cmd.Context(), args[0], location)
				if err != nil {
					return fmt.Errorf("scan: %w", err)
				}
				a.printf("barcode %s accepted, +%d points\n", args[0], res.PointsAwarded)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "Where the barcode was scanned")
	return cmd
}

func (a *app) redeemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "redeem REWARD_ID",
		Short: "Request a reward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDashboard(cmd.Context(), dashboard.Hooks{}, func(c *dashboard.Controller) error {
				if _, err := c.RedeemReward(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("redeem: %w", err)
				}
				a.printf("redemption requested\n")
				return nil
			})
		},
	}
}

func (a *app) adjustCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adjust USER_ID add|redeem AMOUNT",
		Short: "Manually credit or debit a user's points (admin)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			if err := domain.ValidateAdjustment(args[1], amount); err != nil {
				return err
			}
			return a.withDashboard(cmd.Context(), dashboard.Hooks{}, func(c *dashboard.Controller) error {
				if _, err := c.AdjustPoints(cmd.Context(), args[0], args[1], amount); err != nil {
					return fmt.Errorf("adjust: %w", err)
				}
				a.printf("%s %d points for %s\n", args[1], amount, args[0])
				return nil
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status USER_ID pending|approved|disapproved",
		Short: "Change a user's account status (admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDashboard(cmd.Context(), dashboard.Hooks{}, func(c *dashboard.Controller) error {
				if _, err := c.UpdateUserStatus(cmd.Context(), args[0], args[1]); err != nil {
					return fmt.Errorf("status: %w", err)
				}
				a.printf("%s is now %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func (a *app) markReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read NOTIFICATION_ID",
		Short: "Mark a notification as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDashboard(cmd.Context(), dashboard.Hooks{}, func(c *dashboard.Controller) error {
				if err := c.MarkNotificationRead(cmd.Context(), args[0]); err != nil {
					return fmt.Errorf("read: %w", err)
				}
				a.printf("marked %s read\n", args[0])
				return nil
			})
		},
	}
}
