// ABOUTME: Root cobra command and shared state for every deskhand subcommand
// ABOUTME: Loads config, builds the logger and opens the application lazily per command
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harperreed/deskhand/app"
	"github.com/harperreed/deskhand/config"
	"github.com/harperreed/deskhand/google"
	"github.com/harperreed/deskhand/logger"
)

// state is shared by the command tree for one invocation.
type state struct {
	envFiles []string
	dbPath   string
	user     string
	logLevel string
	version  string
	appOpts  []app.Option

	cfg    *config.Config
	log    zerolog.Logger
	app    *app.App
	userID uuid.UUID
}

// NewRootCommand builds the command tree. opts are passed to every app the tree opens.
func NewRootCommand(version string, opts ...app.Option) *cobra.Command {
	st := &state{version: version, appOpts: opts}

	root := &cobra.Command{
		Use:           "deskhand",
		Short:         "Conversational assistant over your calendar, tasks, contacts, files, notes and mail",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return st.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringSliceVar(&st.envFiles, "env-file", nil, "env files to load (default .env)")
	flags.StringVar(&st.dbPath, "db", "", "cache database path or postgres URL (overrides DATABASE_URL)")
	flags.StringVar(&st.user, "user", "", "user id (overrides USER_ID)")
	flags.StringVar(&st.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newMCPCommand(st),
		newServeCommand(st),
		newChatCommand(st),
		newSyncCommand(st),
		newAuthCommand(st),
		newProvidersCommand(st),
		newFieldsCommand(st),
		newNetcheckCommand(st),
		newCharmCommand(st),
	)
	return root
}

// Execute runs the command tree and exits non-zero on failure.
func Execute(version string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// load reads configuration and builds the logger. Safe to call more than once.
func (s *state) load(cmd *cobra.Command) error {
	if s.cfg != nil {
		return nil
	}
	cfg, err := config.Load(s.envFiles...)
	if err != nil {
		return err
	}
	if s.dbPath != "" {
		cfg.DatabaseURL = s.dbPath
	}
	if s.user != "" {
		if _, err := uuid.Parse(s.user); err != nil {
			return fmt.Errorf("--user is not a uuid: %w", err)
		}
		cfg.UserID = s.user
	}
	if s.logLevel != "" {
		cfg.LogLevel = s.logLevel
	}

	logger.SetLevel(cfg.LogLevel)
	s.log = logger.NewWithWriter(cmd.ErrOrStderr(), "deskhand")
	s.cfg = cfg
	return nil
}

// open loads config, resolves the user and opens the application.
func (s *state) open(cmd *cobra.Command) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	if err := s.load(cmd); err != nil {
		return nil, err
	}

	userID, err := s.cfg.ResolveUserID()
	if err != nil {
		return nil, err
	}

	opts := append([]app.Option{
		app.WithGoogleOptions(google.WithBrowser(func(url string) error {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "\nIf browser doesn't open, visit this URL:\n%s\n\n", url)
			_ = openBrowser(url)
			return nil
		})),
	}, s.appOpts...)
	a, err := app.New(cmd.Context(), s.cfg, s.log, opts...)
	if err != nil {
		return nil, err
	}
	s.app = a
	s.userID = userID
	return a, nil
}

func (s *state) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}
