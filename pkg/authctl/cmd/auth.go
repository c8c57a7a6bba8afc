package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/telekom/authctl/pkg/auth"
	"github.com/telekom/authctl/pkg/authctl/output"
)

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in through the system browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.newAuthenticator(cmd.Context())
			if err != nil {
				return err
			}
			res := a.Login(cmd.Context())
			if !res.OK {
				if rt.OutputFormat() != output.FormatText {
					_ = output.WriteObject(rt.Writer(), rt.OutputFormat(), res)
				}
				return errors.New(res.Error)
			}
			return rt.render(res, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Signed in as %s\n", displayName(res.Claims))
			})
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored token set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.newAuthenticator(cmd.Context())
			if err != nil {
				return err
			}
			res := a.Logout(cmd.Context())
			if !res.OK {
				if rt.OutputFormat() != output.FormatText {
					_ = output.WriteObject(rt.Writer(), rt.OutputFormat(), res)
				}
				return errors.New(res.Error)
			}
			return rt.render(res, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "Logged out")
			})
		},
	}
}

func newTokenCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, refreshing it if needed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.newAuthenticator(cmd.Context())
			if err != nil {
				return err
			}
			res := a.AccessToken(cmd.Context())
			if !res.OK {
				if rt.OutputFormat() != output.FormatText {
					_ = output.WriteObject(rt.Writer(), rt.OutputFormat(), res)
				}
				return errors.New(res.Error)
			}
			return rt.render(res, func(w io.Writer) {
				if res.AccessToken == "" {
					_, _ = fmt.Fprintln(w, "Not signed in")
					return
				}
				_, _ = fmt.Fprintln(w, res.AccessToken)
			})
		},
	}
}

func newSessionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			a, err := rt.newAuthenticator(cmd.Context())
			if err != nil {
				return err
			}
			res := a.Session(cmd.Context())
			if !res.OK {
				if rt.OutputFormat() != output.FormatText {
					_ = output.WriteObject(rt.Writer(), rt.OutputFormat(), res)
				}
				return errors.New(res.Error)
			}
			return rt.render(res, func(w io.Writer) {
				if !res.SignedIn {
					_, _ = fmt.Fprintln(w, "Not signed in")
					return
				}
				_, _ = fmt.Fprintf(w, "Signed in as %s\n", displayName(res.Claims))
			})
		},
	}
}

// displayName picks a human-readable identity from unverified claims.
func displayName(claims auth.Claims) string {
	for _, key := range []string{"name", "email", "preferred_username", "sub"} {
		if value, ok := claims[key].(string); ok && value != "" {
			return value
		}
	}
	return "unknown user"
}
