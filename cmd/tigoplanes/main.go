package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/brizzai/tigoplanes/internal/auth"
	"github.com/brizzai/tigoplanes/internal/auth/providers"
	"github.com/brizzai/tigoplanes/internal/catalog"
	"github.com/brizzai/tigoplanes/internal/config"
	"github.com/brizzai/tigoplanes/internal/logger"
	"github.com/brizzai/tigoplanes/internal/metrics"
	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/brizzai/tigoplanes/internal/requester"
	"github.com/brizzai/tigoplanes/internal/store"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tigoplanes",
	Short: "Tigo Planes client and callback server",
	Long: `Tigo Planes lets customers browse mobile plans and request them, and
lets commercial advisors manage the catalog and answer requests.

It also handles the authentication links sent by email (sign-up
confirmation, password recovery) either from the command line with
"open" or as a small HTTP service with "serve".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(auth.UserMessage(err))
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		serveCmd,
		openCmd,
		signInCmd,
		signUpCmd,
		signOutCmd,
		whoamiCmd,
		resetPasswordCmd,
		passwdCmd,
		profileCmd,
		plansCmd,
		hiringsCmd,
	)
}

// coreModules is the graph every command shares.
func coreModules(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.WithLogger(logger.FxLogger),
		config.Module,
		logger.Module,
		requester.Module,
		providers.Module,
		store.Module,
		auth.Module,
		metrics.Module,
		reconcile.Module,
		catalog.Module,
	)
}

// withApp starts the application graph, lets fn use the values it
// populated, and stops the graph again. targets are fx.Populate targets.
func withApp(cmd *cobra.Command, fn func(ctx context.Context) error, targets ...any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	// One-shot commands keep stderr quiet unless asked otherwise.
	if !cmd.Flags().Changed("logging.level") && os.Getenv("TIGOPLANES_LOGGING_LEVEL") == "" {
		cfg.Logging.Level = "warn"
	}

	app := fx.New(coreModules(cfg), fx.Populate(targets...))
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
		defer cancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil && err == nil {
			err = stopErr
		}
	}()

	return fn(ctx)
}
