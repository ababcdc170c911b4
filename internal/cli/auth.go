package cli

import (
	"fmt"

	"salun/internal/credentials"
	"salun/internal/domain"
	"salun/internal/remote"
	"salun/internal/store"

	"github.com/spf13/cobra"
)

func (a *app) loginCmd() *cobra.Command {
	var mobile, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mobile == "" || password == "" {
				return fmt.Errorf("mobile and password are required: salun login -m <mobile> -p <password>")
			}
			res, err := a.newBackend("").Login(cmd.Context(), mobile, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			p := principalFrom(res)
			if p.UserID == "" {
				return fmt.Errorf("login: response carried no user id")
			}
			if p.Role == domain.RoleUser {
				if status := res.User.String("status"); status != "" && status != domain.StatusApproved {
					return fmt.Errorf("login: account is %s", status)
				}
			}

			creds, err := a.credentials()
			if err != nil {
				return err
			}
			defer creds.Close()
			if err := creds.Save(p); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}
			a.printf("signed in as %s (%s)\n", nameOr(p.Name, p.Mobile), p.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mobile, "mobile", "m", "", "Mobile number")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

func principalFrom(res *remote.LoginResult) credentials.Principal {
	u := res.User
	if u == nil {
		u = store.Entity{}
	}
	role := u.String("role")
	if role == "" {
		role = domain.RoleUser
	}
	return credentials.Principal{
		Token:    res.Token,
		UserID:   store.IDOf(u),
		Role:     role,
		Name:     u.String("name"),
		Mobile:   u.String("mobile"),
		Location: u.String("location"),
	}
}

func (a *app) registerCmd() *cobra.Command {
	var in remote.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; it stays pending until an admin approves it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Name == "" || in.Mobile == "" || in.Password == "" {
				return fmt.Errorf("name, mobile and password are required")
			}
			u, err := a.newBackend("").Register(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			a.printf("registered %s, status %s\n", nameOr(u.String("name"), in.Name), nameOr(u.String("status"), domain.StatusPending))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "Full name")
	cmd.Flags().StringVarP(&in.Mobile, "mobile", "m", "", "Mobile number")
	cmd.Flags().StringVarP(&in.Password, "password", "p", "", "Password")
	cmd.Flags().StringVarP(&in.Location, "location", "l", "", "Location")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			defer creds.Close()
			if err := creds.Clear(); err != nil {
				return err
			}
			a.printf("signed out\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored principal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.credentials()
			if err != nil {
				return err
			}
			defer creds.Close()
			p, err := a.principal(creds)
			if err != nil {
				return err
			}
			a.printf("%s\t%s\t%s\t%s\n", p.UserID, nameOr(p.Name, "-"), nameOr(p.Mobile, "-"), p.Role)
			return nil
		},
	}
}

func nameOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
