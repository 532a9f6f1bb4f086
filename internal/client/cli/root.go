// Package cli is the command-line front end of the client core.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envServerURL    = "OCGAMMA_SERVER"
	envDataDir      = "OCGAMMA_DATA_DIR"
	defaultServer   = "http://localhost:8080"
	schemeFileName  = "color-scheme"
	appDirName      = "ocgamma"
	fallbackDataDir = ".ocgamma"
)

type rootOptions struct {
	cfg     Config
	verbose bool
	in      *bufio.Reader
	app     *App
	log     *zap.Logger
}

// NewRootCmd builds the command tree. Input is read from in.
func NewRootCmd(in io.Reader) *cobra.Command {
	opts := &rootOptions{in: bufio.NewReader(in)}

	root := &cobra.Command{
		Use:           "ocgamma",
		Short:         "Account and theme client",
		Long:          "ocgamma signs in to the account API, manages the profile and keeps the theme preference in sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			config := zap.NewProductionConfig()
			config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
			if opts.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.log = logger

			if opts.cfg.SchemeFile == "" {
				opts.cfg.SchemeFile = filepath.Join(opts.cfg.DataDir, schemeFileName)
			}
			app, err := NewApp(cmd.Context(), opts.cfg, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			opts.app = app
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.cfg.ServerURL, "server", envOr(envServerURL, defaultServer), "API base URL")
	flags.StringVar(&opts.cfg.DataDir, "data-dir", envOr(envDataDir, defaultDataDir()), "directory for local state")
	flags.StringVar(&opts.cfg.SchemeFile, "scheme-file", "", "file holding the OS color scheme (dark or light)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newRegisterCmd(opts),
		newProfileCmd(opts),
		newPasswdCmd(opts),
		newThemeCmd(opts),
	)
	return root
}

// Execute runs the CLI with the process arguments.
func Execute(ctx context.Context) error {
	root := NewRootCmd(os.Stdin)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

// close runs after failed commands too, since cobra skips PostRun on error.
func (o *rootOptions) close(ctx context.Context) error {
	if o.app == nil {
		return nil
	}
	err := o.app.Close(ctx)
	o.app = nil
	if o.log != nil {
		_ = o.log.Sync()
	}
	return err
}

// run wraps a command body so the app is closed whether or not it fails.
func (o *rootOptions) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			_ = o.close(cmd.Context())
			return err
		}
		return nil
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDirName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallbackDataDir)
	}
	return fallbackDataDir
}
