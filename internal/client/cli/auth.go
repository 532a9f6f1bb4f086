package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ocgamma/internal/client/api"
	"ocgamma/internal/client/session"
)

var errNotLoggedIn = errors.New("not logged in, run 'ocgamma login' first")

// requireSession resolves the session and applies the protected-view guard.
func (o *rootOptions) requireSession(cmd *cobra.Command) (*api.User, error) {
	if err := o.app.auth.Bootstrap(cmd.Context()); err != nil {
		return nil, err
	}
	st := o.app.session.Snapshot()
	if session.Guard(st, session.Protected).Outcome != session.Render {
		return nil, errNotLoggedIn
	}
	return st.User, nil
}

func newLoginCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in and keep the session for later commands",
		Args:  cobra.MaximumNArgs(1),
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			ctx, out, a := cmd.Context(), cmd.OutOrStdout(), o.app
			if err := a.auth.Bootstrap(ctx); err != nil {
				return err
			}
			if d := session.Guard(a.session.Snapshot(), session.PublicOnly); d.Outcome == session.Redirect {
				fmt.Fprintf(out, "Already logged in as %s\n", a.session.Snapshot().User.Username)
				return nil
			}

			var username string
			if len(args) == 1 {
				username = args[0]
			} else {
				var err error
				if username, err = promptLine(o.in, out, "Username"); err != nil {
					return err
				}
			}
			password, err := promptPassword(out, "Password")
			if err != nil {
				return err
			}

			user, err := a.auth.Login(ctx, username, password)
			if err != nil {
				return err
			}
			a.palette().user(out, user)
			return nil
		}),
	}
}

func newLogoutCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			a := o.app
			if err := a.auth.Logout(cmd.Context()); err != nil {
				a.log.Debug("logout", zap.Error(err))
			}
			a.client.ClearCookies()
			return nil
		}),
	}
}

func newWhoamiCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			user, err := o.requireSession(cmd)
			if err != nil {
				return err
			}
			o.app.palette().user(cmd.OutOrStdout(), user)
			return nil
		}),
	}
}

func newRegisterCmd(o *rootOptions) *cobra.Command {
	var email, username, fullName string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			password, err := promptPassword(out, "Password")
			if err != nil {
				return err
			}
			confirm, err := promptPassword(out, "Confirm password")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			req := api.RegisterRequest{Email: email, Username: username, Password: password}
			if cmd.Flags().Changed("full-name") {
				req.FullName = &fullName
			}
			user, err := o.app.auth.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Registered %s. Run 'ocgamma login %s' to sign in.\n", user.Username, user.Username)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&username, "username", "", "username (3 to 100 characters)")
	cmd.Flags().StringVar(&fullName, "full-name", "", "full name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newProfileCmd(o *rootOptions) *cobra.Command {
	var email, fullName string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update the profile; without flags it shows it",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			user, err := o.requireSession(cmd)
			if err != nil {
				return err
			}

			var upd api.ProfileUpdate
			if cmd.Flags().Changed("email") {
				upd.Email = &email
			}
			if cmd.Flags().Changed("full-name") {
				upd.FullName = &fullName
			}
			if upd.Email != nil || upd.FullName != nil {
				if user, err = o.app.auth.UpdateProfile(cmd.Context(), upd); err != nil {
					return err
				}
			}
			o.app.palette().user(cmd.OutOrStdout(), user)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&fullName, "full-name", "", "new full name")
	return cmd
}

func newPasswdCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the password",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			if _, err := o.requireSession(cmd); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			var req api.PasswordChange
			var err error
			if req.CurrentPassword, err = promptPassword(out, "Current password"); err != nil {
				return err
			}
			if req.NewPassword, err = promptPassword(out, "New password"); err != nil {
				return err
			}
			if req.ConfirmPassword, err = promptPassword(out, "Confirm new password"); err != nil {
				return err
			}
			return o.app.auth.ChangePassword(cmd.Context(), req)
		}),
	}
}
