package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cliente_backend/internal/client"
)

type credentialsFlags struct {
	email    string
	password string
}

func (f *credentialsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&f.password, "password", "", "account password (prompted when omitted)")
}

// resolve fills missing values from stdin.
func (f *credentialsFlags) resolve(a *app, cmd *cobra.Command) (string, string, error) {
	email, password := f.email, f.password
	var err error
	if email == "" {
		if email, err = a.prompt(cmd.ErrOrStderr(), "E-mail: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = a.prompt(cmd.ErrOrStderr(), "Password: "); err != nil {
			return "", "", err
		}
	}
	if email == "" || password == "" {
		return "", "", errors.New("e-mail and password are required")
	}
	return email, password, nil
}

func newRegisterCmd(a *app) *cobra.Command {
	var creds credentialsFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := creds.resolve(a, cmd)
			if err != nil {
				return err
			}
			s, err := a.api.Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.printer.Success("registered and signed in as %s", s.Email)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var creds credentialsFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			email, password, err := creds.resolve(a, cmd)
			if err != nil {
				return err
			}
			s, err := a.api.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.printer.Success("signed in as %s", s.Email)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.api.Session() == nil {
				a.printer.Info("not signed in")
				return nil
			}
			logout := a.api.Logout
			if all {
				logout = a.api.LogoutAll
			}
			if err := logout(cmd.Context()); err != nil {
				a.printer.Warning("server logout failed: %v", err)
			}
			if all {
				a.printer.Success("signed out on all devices")
				return nil
			}
			a.printer.Success("signed out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "revoke every session of the account, not only this one")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			me, err := a.api.Me(cmd.Context())
			if errors.Is(err, client.ErrNotLoggedIn) {
				return errors.New("not signed in, run `clientes login`")
			}
			if err != nil {
				return err
			}
			a.printer.Info("%s %s", me.Email, a.printer.Dim("("+me.ID+")"))
			return nil
		},
	}
}
