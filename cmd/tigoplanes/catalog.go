package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/brizzai/tigoplanes/internal/catalog"
	"github.com/brizzai/tigoplanes/internal/models"
	"github.com/brizzai/tigoplanes/internal/tui"
)

var plansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Browse and manage mobile plans",
}

var hiringsCmd = &cobra.Command{
	Use:   "hirings",
	Short: "Request plans and answer requests",
}

func printPlans(plans []models.Plan) {
	if len(plans) == 0 {
		pterm.Info.Println("No plans")
		return
	}
	data := pterm.TableData{{"ID", "Name", "Price", "Data", "Minutes", "Active"}}
	for _, p := range plans {
		active := "yes"
		if !p.Active {
			active = "no"
		}
		data = append(data, []string{p.ID, p.Name, fmt.Sprintf("$%.2f", p.Price), p.DataGB, p.VoiceMinutes, active})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printHirings(hirings []models.Hiring) {
	if len(hirings) == 0 {
		pterm.Info.Println("No hiring requests")
		return
	}
	data := pterm.TableData{{"ID", "Plan", "Customer", "Status", "Requested", "Notes"}}
	for _, h := range hirings {
		plan := h.PlanID
		if h.Plan != nil {
			plan = h.Plan.Name
		}
		customer := h.UserID
		if h.Customer != nil {
			customer = h.Customer.Email
		}
		requested := ""
		if h.RequestedAt != nil {
			requested = h.RequestedAt.Local().Format("2006-01-02 15:04")
		}
		notes := h.CustomerNotes
		if h.AdvisorNotes != "" {
			notes = h.AdvisorNotes
		}
		data = append(data, []string{h.ID, plan, customer, string(h.Status), requested, notes})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

var plansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active plans, or your own with --mine",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mine, _ := cmd.Flags().GetBool("mine")
		var svc *catalog.PlanService
		return withApp(cmd, func(ctx context.Context) error {
			list := svc.ListActive
			if mine {
				list = svc.ListMine
			}
			plans, err := list(ctx)
			if err != nil {
				return err
			}
			printPlans(plans)
			return nil
		}, &svc)
	},
}

var plansShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one plan as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *catalog.PlanService
		return withApp(cmd, func(ctx context.Context) error {
			plan, err := svc.Get(ctx, args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer func() { _ = enc.Close() }()
			return enc.Encode(plan)
		}, &svc)
	},
}

// readPlanFile loads a plan written in the same YAML shape "plans show" prints.
func readPlanFile(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	var plan models.Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return &plan, nil
}

var plansCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a plan from a YAML file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		image, _ := cmd.Flags().GetString("image")
		plan, err := readPlanFile(file)
		if err != nil {
			return err
		}
		var svc *catalog.PlanService
		return withApp(cmd, func(ctx context.Context) error {
			if image != "" {
				url, err := uploadImage(ctx, svc, image)
				if err != nil {
					return err
				}
				plan.ImageURL = url
			}
			created, err := svc.Create(ctx, *plan)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Published %s (%s)", created.Name, created.ID)
			return nil
		}, &svc)
	},
}

var plansUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a plan from a YAML file of the fields to update",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read patch file: %w", err)
		}
		var patch models.PlanPatch
		if err := yaml.Unmarshal(data, &patch); err != nil {
			return fmt.Errorf("failed to parse patch file %s: %w", file, err)
		}
		var svc *catalog.PlanService
		return withApp(cmd, func(ctx context.Context) error {
			if err := svc.Update(ctx, args[0], patch); err != nil {
				return err
			}
			pterm.Success.Println("Plan updated")
			return nil
		}, &svc)
	},
}

var plansDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Withdraw a plan from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *catalog.PlanService
		return withApp(cmd, func(ctx context.Context) error {
			if err := svc.Delete(ctx, args[0]); err != nil {
				return err
			}
			pterm.Success.Println("Plan withdrawn")
			return nil
		}, &svc)
	},
}

func uploadImage(ctx context.Context, svc *catalog.PlanService, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()
	return svc.UploadImage(ctx, filepath.Base(path), f)
}

var hiringsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hiring requests (--scope mine|all|pending)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, _ := cmd.Flags().GetString("scope")
		var svc *catalog.HiringService
		return withApp(cmd, func(ctx context.Context) error {
			var list func(context.Context) ([]models.Hiring, error)
			switch scope {
			case "", "mine":
				list = svc.ListMine
			case "all":
				list = svc.ListAll
			case "pending":
				list = svc.ListPending
			default:
				return fmt.Errorf("unknown scope %q", scope)
			}
			hirings, err := list(ctx)
			if err != nil {
				return err
			}
			printHirings(hirings)
			return nil
		}, &svc)
	},
}

var hiringsRequestCmd = &cobra.Command{
	Use:   "request <plan-id>",
	Short: "Ask to subscribe to a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notes, _ := cmd.Flags().GetString("notes")
		var svc *catalog.HiringService
		return withApp(cmd, func(ctx context.Context) error {
			h, err := svc.Create(ctx, args[0], notes)
			if err != nil {
				return err
			}
			pterm.Success.Printfln("Request %s sent, an advisor will answer it", h.ID)
			return nil
		}, &svc)
	},
}

var hiringsCancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Withdraw one of your pending requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *catalog.HiringService
		return withApp(cmd, func(ctx context.Context) error {
			if err := svc.Cancel(ctx, args[0]); err != nil {
				return err
			}
			pterm.Success.Println("Request cancelled")
			return nil
		}, &svc)
	},
}

func decideCmd(use, short string, status models.HiringStatus) *cobra.Command {
	c := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			notes, _ := cmd.Flags().GetString("notes")
			var svc *catalog.HiringService
			return withApp(cmd, func(ctx context.Context) error {
				if err := svc.Decide(ctx, args[0], status, notes); err != nil {
					return err
				}
				pterm.Success.Printfln("Request %s %s", args[0], status)
				return nil
			}, &svc)
		},
	}
	c.Flags().String("notes", "", "Notes for the customer")
	return c
}

var hiringsReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Answer pending requests interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var svc *catalog.HiringService
		return withApp(cmd, func(ctx context.Context) error {
			pending, err := svc.ListPending(ctx)
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				pterm.Info.Println("No pending requests")
				return nil
			}
			m, err := tea.NewProgram(tui.NewReviewModel(ctx, svc, pending), tea.WithAltScreen()).Run()
			if err != nil {
				return fmt.Errorf("error running program: %w", err)
			}
			pterm.Info.Printfln("Answered %s of %s requests.",
				pterm.LightGreen(m.(tui.ReviewModel).Decided()),
				pterm.White(len(pending)))
			return nil
		}, &svc)
	},
}

func init() {
	plansListCmd.Flags().Bool("mine", false, "Only the plans you published")
	for _, c := range []*cobra.Command{plansCreateCmd, plansUpdateCmd} {
		c.Flags().StringP("file", "f", "", "YAML file")
		_ = c.MarkFlagRequired("file")
	}
	plansCreateCmd.Flags().String("image", "", "Image to upload for the plan")
	plansCmd.AddCommand(plansListCmd, plansShowCmd, plansCreateCmd, plansUpdateCmd, plansDeleteCmd)

	hiringsListCmd.Flags().String("scope", "mine", "mine, all or pending")
	hiringsRequestCmd.Flags().String("notes", "", "Notes for the advisor")
	hiringsCmd.AddCommand(
		hiringsListCmd,
		hiringsRequestCmd,
		hiringsCancelCmd,
		decideCmd("approve", "Approve a pending request", models.HiringApproved),
		decideCmd("reject", "Reject a pending request", models.HiringRejected),
		hiringsReviewCmd,
	)
}
