package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/models"
)

// flagOrPrompt returns the flag value, asking for it interactively when it
// was not given.
func flagOrPrompt(cmd *cobra.Command, name, prompt string, secret bool) (string, error) {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v, nil
	}
	input := pterm.DefaultInteractiveTextInput
	if secret {
		input = *input.WithMask("*")
	}
	return input.Show(prompt)
}

func printUser(user *models.User) {
	if user == nil {
		pterm.Info.Println("Not signed in")
		return
	}
	role := "Customer"
	if user.IsAdvisor() {
		role = "Commercial advisor"
	}
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"ID", user.ID},
		{"Email", user.Email},
		{"Name", user.DisplayName},
		{"Phone", user.Phone},
		{"Role", role},
	}).Render()
}

var signInCmd = &cobra.Command{
	Use:   "signin",
	Short: "Sign in with email and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			email, err := flagOrPrompt(cmd, "email", "Email", false)
			if err != nil {
				return err
			}
			password, err := flagOrPrompt(cmd, "password", "Password", true)
			if err != nil {
				return err
			}
			user, err := svc.SignIn(ctx, email, password)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Welcome, %s", displayName(user))
			return nil
		}, &svc)
	},
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a customer account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			email, err := flagOrPrompt(cmd, "email", "Email", false)
			if err != nil {
				return err
			}
			password, err := flagOrPrompt(cmd, "password", "Password", true)
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			phone, _ := cmd.Flags().GetString("phone")

			user, err := svc.SignUp(ctx, auth.SignUpInput{
				Email:       email,
				Password:    password,
				DisplayName: name,
				Phone:       phone,
			})
			if err != nil {
				return err
			}
			if svc.Session() == nil {
				pterm.Success.Printfln("Account created for %s. Check your email to confirm it, then run \"tigoplanes open <link>\".", user.Email)
				return nil
			}
			pterm.Success.Printfln("Account created, welcome %s", displayName(user))
			return nil
		}, &svc)
	},
}

var signOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			if err := svc.SignOut(ctx); err != nil {
				return err
			}
			pterm.Success.Println("Signed out")
			return nil
		}, &svc)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			user, err := svc.CurrentUser(ctx)
			if err != nil {
				return err
			}
			printUser(user)
			return nil
		}, &svc)
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Email a password recovery link",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			email, err := flagOrPrompt(cmd, "email", "Email", false)
			if err != nil {
				return err
			}
			if err := svc.RequestPasswordReset(ctx, email); err != nil {
				return err
			}
			pterm.Success.Println("If the account exists, a recovery link is on its way. Open it with \"tigoplanes open <link>\".")
			return nil
		}, &svc)
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Set a new password",
	Long: `Passwd changes the password of the signed-in user. After opening a
recovery link, --current can be left out.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			next, err := flagOrPrompt(cmd, "new", "New password", true)
			if err != nil {
				return err
			}
			current, _ := cmd.Flags().GetString("current")
			if current != "" {
				err = svc.ChangePassword(ctx, current, next)
			} else {
				err = svc.UpdatePassword(ctx, next)
			}
			if err != nil {
				return err
			}
			pterm.Success.Println("Password updated")
			return nil
		}, &svc)
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update the display name and phone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")
		if name == "" {
			return fmt.Errorf("--name is required")
		}
		var svc *auth.Service
		return withApp(cmd, func(ctx context.Context) error {
			if err := svc.UpdateProfile(ctx, name, phone); err != nil {
				return err
			}
			pterm.Success.Println("Profile updated")
			return nil
		}, &svc)
	},
}

func displayName(u *models.User) string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}

func init() {
	for _, c := range []*cobra.Command{signInCmd, signUpCmd, resetPasswordCmd} {
		c.Flags().String("email", "", "Account email")
	}
	for _, c := range []*cobra.Command{signInCmd, signUpCmd} {
		c.Flags().String("password", "", "Account password (prompted when omitted)")
	}
	for _, c := range []*cobra.Command{signUpCmd, profileCmd} {
		c.Flags().String("name", "", "Display name")
		c.Flags().String("phone", "", "Phone number")
	}
	passwdCmd.Flags().String("current", "", "Current password")
	passwdCmd.Flags().String("new", "", "New password (prompted when omitted)")
}
