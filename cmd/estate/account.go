package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/estate-checkout/internal/auth"
)

func loginCmd(a *app) *cobra.Command {
	var email, password, next string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if next != "" {
				a.session.RememberDestination(next)
			}

			user, err := a.session.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Signed in as %s\n", displayName(user.FullName(), user.Email))
			fmt.Fprintf(out, "Continue at %s%s\n", strings.TrimSuffix(a.cfg.SiteURL, "/"), a.session.TakeDestination())
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&next, "next", "", "page to continue to after signing in")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.session.Restore(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !s.Authenticated() {
				fmt.Fprintf(out, "Not signed in. Sign in at %s\n", a.signInURL())
				return nil
			}
			fmt.Fprintf(out, "%s <%s>\n", displayName(s.User.FullName(), s.User.Email), s.User.Email)
			if s.User.Role != "" {
				fmt.Fprintf(out, "Role: %s\n", s.User.Role)
			}
			return nil
		},
	}
}

func registerCmd(a *app) *cobra.Command {
	var req auth.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.session.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created for %s. Run `estate login` to sign in.\n", user.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func displayName(name, email string) string {
	if name == "" {
		return email
	}
	return name
}
