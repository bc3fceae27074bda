package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/adapters/progress"
	"github.com/trebuchet-org/txq/internal/app"
	"github.com/trebuchet-org/txq/internal/config"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// commands that run without a project or queue
var standalone = map[string]bool{
	"version":    true,
	"help":       true,
	"completion": true,
}

// commands that handle stale entries themselves
var skipCleanup = map[string]bool{
	"prune": true,
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	var cleanups []func()

	rootCmd := &cobra.Command{
		Use:   "txq",
		Short: "Queue and execute DeFi transactions",
		Long: `txq keeps an ordered queue of on-chain transactions (approvals, deposits,
withdrawals, ...) and submits them one at a time from your account.

Queued transactions survive restarts. Execution simulates every call first,
grants token allowances when needed and records the outcome of each item.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if standalone[cmd.Name()] {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			v := config.SetupViper(projectRoot, cmd)

			// JSON output must stay machine readable
			var sink usecase.ProgressSink = progress.NewNopSink()
			if !v.GetBool("json") {
				sink = progress.NewExecProgress(cmd.ErrOrStderr(), !v.GetBool("non_interactive"))
			}

			appInstance, cleanup, err := app.InitApp(v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}
			cleanups = append(cleanups, cleanup)

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cleanups = append(cleanups, cancel)
			}

			appInstance.Queue.Init(ctx, usecase.InitParams{SkipCleanup: skipCleanup[cmd.Name()]})
			cmd.SetContext(ctx)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			for i := len(cleanups) - 1; i >= 0; i-- {
				cleanups[i]()
			}
			cleanups = nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network to use (from txq.toml)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding the queue and local config (default .txq)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	// Main commands
	for _, c := range []*cobra.Command{
		NewAddCmd(),
		NewListCmd(),
		NewShowCmd(),
		NewExecCmd(),
		NewEstimateCmd(),
		NewApprovalCmd(),
	} {
		c.GroupID = "main"
		rootCmd.AddCommand(c)
	}

	// Management commands
	for _, c := range []*cobra.Command{
		NewRemoveCmd(),
		NewCancelCmd(),
		NewRetryCmd(),
		NewClearCmd(),
		NewReorderCmd(),
		NewMoveCmd(),
		NewPruneCmd(),
		NewNetworksCmd(),
	} {
		c.GroupID = "management"
		rootCmd.AddCommand(c)
	}

	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
