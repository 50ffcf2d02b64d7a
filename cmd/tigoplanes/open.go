package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/brizzai/tigoplanes/internal/reconcile"
	"github.com/brizzai/tigoplanes/internal/tui"
)

var openCmd = &cobra.Command{
	Use:   "open <url>",
	Short: "Process an authentication link from an email",
	Long: `Open hands a link to the callback screen, as the operating system would
when the app is launched from an email. Sign-up confirmation and password
recovery links establish the session; any other link is ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		var router *reconcile.Router
		return withApp(cmd, func(ctx context.Context) error {
			if plain {
				return openPlain(ctx, router, args[0])
			}
			return openInteractive(ctx, router, args[0])
		}, &router)
	},
}

func init() {
	openCmd.Flags().Bool("plain", false, "Print the result without the interactive screen")
}

func openInteractive(ctx context.Context, router *reconcile.Router, raw string) error {
	m, err := tea.NewProgram(tui.NewCallbackModel(ctx, router, raw)).Run()
	if err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	final := m.(tui.CallbackModel)
	if final.Left() {
		pterm.Warning.Println("Left before the link was handled")
		return nil
	}
	outcome, delivery, redirect := final.Result()
	return report(outcome, delivery, redirect)
}

func openPlain(ctx context.Context, router *reconcile.Router, raw string) error {
	navigated := make(chan reconcile.Redirect, 1)
	screen := router.Mount(reconcile.NavigatorFunc(func(r reconcile.Redirect) {
		navigated <- r
	}))
	stop := context.AfterFunc(ctx, screen.Unmount)
	defer stop()

	outcome, delivery := screen.Deliver(ctx, raw)
	<-screen.Done()

	var redirect *reconcile.Redirect
	select {
	case r := <-navigated:
		redirect = &r
	default:
	}
	return report(outcome, delivery, redirect)
}

func report(outcome reconcile.Outcome, delivery reconcile.Delivery, redirect *reconcile.Redirect) error {
	switch delivery {
	case reconcile.Ignored:
		pterm.Info.Println("Not an authentication link, nothing to do")
		return nil
	case reconcile.Duplicate:
		pterm.Info.Println("This link was already handled")
		return nil
	}
	if redirect == nil {
		return nil
	}
	if outcome.State == reconcile.StateFailed {
		return fmt.Errorf("%s (next: %s)", redirect.Message, redirect.Route)
	}
	msg := redirect.Message
	if msg == "" {
		msg = "Signed in"
	}
	pterm.Success.Printfln("%s (next: %s)", msg, pterm.LightCyan(redirect.Route))
	return nil
}
