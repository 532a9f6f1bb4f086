package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ocgamma/internal/client/api"
	"ocgamma/internal/client/theme"
)

func newThemeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the theme preference",
	}
	cmd.AddCommand(newThemeGetCmd(o), newThemeSetCmd(o), newThemeWatchCmd(o))
	return cmd
}

func newThemeGetCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Print the preference and the mode it resolves to",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			a := o.app
			a.palette().theme(cmd.OutOrStdout(), a.prefs.Preference(), a.prefs.Resolved())
			return nil
		}),
	}
}

func newThemeSetCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "set light|dark|system",
		Short:     "Choose a theme; saved to the account when signed in",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(theme.Light), string(theme.Dark), string(theme.System)},
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			pref, err := theme.ParsePreference(args[0])
			if err != nil {
				return err
			}
			ctx, a := cmd.Context(), o.app

			// Offline still allows a local change.
			if err := a.auth.Bootstrap(ctx); err != nil && !errors.Is(err, api.ErrTransport) {
				return err
			} else if err != nil {
				a.log.Debug("server unreachable, applying theme locally", zap.Error(err))
			}

			if err := a.themes.Select(ctx, pref); err != nil {
				return err
			}
			a.palette().theme(cmd.OutOrStdout(), a.prefs.Preference(), a.prefs.Resolved())
			return nil
		}),
	}
}

func newThemeWatchCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the resolved theme whenever it changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: o.run(func(cmd *cobra.Command, args []string) error {
			a, out := o.app, cmd.OutOrStdout()
			changes := make(chan theme.Resolved, 8)
			unsubscribe := a.prefs.Subscribe(func(_ theme.Preference, r theme.Resolved) {
				select {
				case changes <- r:
				default:
				}
			})
			defer unsubscribe()

			a.palette().theme(out, a.prefs.Preference(), a.prefs.Resolved())
			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case r := <-changes:
					fmt.Fprintln(out, newPalette(r).title.Render(string(r)))
				}
			}
		}),
	}
}
