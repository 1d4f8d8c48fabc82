package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"renoline/internal/app"
	"renoline/internal/config"
	"renoline/internal/db"
	"renoline/internal/engine"
	"renoline/internal/metrics"
	"renoline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "rl",
	Short: "Renoline CLI",
	Long: `Renoline tracks renovation projects funded by subsidy programs.
- Workspace: your .renoline directory with the project database; the program
  catalog lives next to it in renoline.yml.
- Project: one renovation application. It starts as a Quotation and moves to
  On Track once activated; Delayed and Completed are derived, never set by hand.
- Interventions: the subsidized work packages (windows, insulation, heat pump).
  Their budget is seeded from the catalog caps and later driven by line items.
- Sub-interventions: the priced line items under an intervention.
- Stages: the execution steps per intervention; statuses go
  pending -> in progress -> completed/failed, and a finished stage locks its
  intervention's financial fields.
- Audit log: every change is recorded on the project, newest first.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("RENOLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("project", "", "project id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func registerCommands() {
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(interventionCmd())
	rootCmd.AddCommand(subCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(profitCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- project ---

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectActivateCmd())
	prj.AddCommand(projectDeleteCmd())
	return prj
}

func projectCreateCmd() *cobra.Command {
	var id, title, appNumber, owner, deadline string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.CreateProject(ctx, engine.CreateProjectOptions{
					ID:                id,
					Title:             title,
					ApplicationNumber: appNumber,
					OwnerContactID:    owner,
					Deadline:          deadline,
					Actor:             actorID(),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id (generated when empty)")
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&appNumber, "application-number", "", "subsidy application number")
	cmd.Flags().StringVar(&owner, "owner", "", "owner contact id")
	cmd.Flags().StringVar(&deadline, "deadline", "", "project deadline (RFC 3339)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func projectListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Store.ListProjects(ctx)
				if err != nil {
					return err
				}
				now := time.Now()
				for i := range items {
					items[i] = metrics.Compute(items[i], metrics.Options{
						TimeSensitive: true,
						Now:           now,
						Locale:        env.Config.SortLocale(),
					})
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Progress", "Budget", "Alerts", "Deadline"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Title, p.Status, fmt.Sprintf("%d%%", p.Progress),
						fmt.Sprintf("%.2f", p.Budget), p.Alerts, p.Deadline})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a project with derived metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.GetProject(ctx, requireProject())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var title, appNumber, owner, deadline string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update project header fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.UpdateProjectOptions{ProjectID: requireProject(), Actor: actorID()}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("application-number") {
				opts.ApplicationNumber = &appNumber
			}
			if cmd.Flags().Changed("owner") {
				opts.OwnerContactID = &owner
			}
			if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "project title")
	cmd.Flags().StringVar(&appNumber, "application-number", "", "subsidy application number")
	cmd.Flags().StringVar(&owner, "owner", "", "owner contact id")
	cmd.Flags().StringVar(&deadline, "deadline", "", "project deadline (RFC 3339)")
	return cmd
}

func projectActivateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Move a project out of Quotation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.ActivateProject(ctx, requireProject(), actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				return env.Engine.DeleteProject(ctx, requireProject())
			})
		},
	}
	return cmd
}

// --- intervention ---

func interventionCmd() *cobra.Command {
	iv := &cobra.Command{Use: "intervention", Short: "Manage interventions"}
	iv.AddCommand(interventionAddCmd())
	iv.AddCommand(interventionUpdateCmd())
	iv.AddCommand(interventionDeleteCmd())
	return iv
}

func interventionAddCmd() *cobra.Command {
	var opts engine.AddInterventionOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an intervention (budget seeded from catalog caps)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProjectID = requireProject()
			opts.Actor = actorID()
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.AddIntervention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.MasterID, "master-id", "", "intervention id (generated when empty)")
	cmd.Flags().StringVar(&opts.Code, "code", "", "catalog category code, e.g. 1.A1")
	cmd.Flags().StringVar(&opts.ExpenseCategory, "expense-category", "", "expense category label")
	cmd.Flags().StringVar(&opts.Category, "category", "", "intervention category")
	cmd.Flags().StringVar(&opts.Subcategory, "subcategory", "", "intervention subcategory")
	cmd.Flags().Float64Var(&opts.Quantity, "quantity", 0, "quantity")
	cmd.Flags().Float64Var(&opts.MaxUnitPrice, "max-unit-price", 0, "price cap per unit (catalog default)")
	cmd.Flags().Float64Var(&opts.MaxAmount, "max-amount", 0, "total cap (catalog default)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func interventionUpdateCmd() *cobra.Command {
	var masterID, code, expense, category, subcategory string
	var quantity float64
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update an intervention",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.UpdateInterventionOptions{
				ProjectID: requireProject(),
				MasterID:  masterID,
				Actor:     actorID(),
			}
			if cmd.Flags().Changed("code") {
				opts.Code = &code
			}
			if cmd.Flags().Changed("expense-category") {
				opts.ExpenseCategory = &expense
			}
			if cmd.Flags().Changed("category") {
				opts.Category = &category
			}
			if cmd.Flags().Changed("subcategory") {
				opts.Subcategory = &subcategory
			}
			if cmd.Flags().Changed("quantity") {
				opts.Quantity = &quantity
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.UpdateIntervention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&code, "code", "", "catalog category code")
	cmd.Flags().StringVar(&expense, "expense-category", "", "expense category label")
	cmd.Flags().StringVar(&category, "category", "", "intervention category")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "intervention subcategory")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity")
	_ = cmd.MarkFlagRequired("master-id")
	return cmd
}

func interventionDeleteCmd() *cobra.Command {
	var masterID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete an intervention (all stages must be pending)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.DeleteIntervention(ctx, requireProject(), masterID, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	_ = cmd.MarkFlagRequired("master-id")
	return cmd
}

// --- sub-intervention ---

func subCmd() *cobra.Command {
	sub := &cobra.Command{Use: "sub", Short: "Manage sub-interventions (priced line items)"}
	sub.AddCommand(subAddCmd())
	sub.AddCommand(subUpdateCmd())
	sub.AddCommand(subDeleteCmd())
	sub.AddCommand(subMoveCmd())
	return sub
}

func subAddCmd() *cobra.Command {
	var opts engine.AddSubInterventionOptions
	var quantity, materials, labor, unitCost float64
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a line item under an intervention",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProjectID = requireProject()
			opts.Actor = actorID()
			if cmd.Flags().Changed("quantity") {
				opts.Quantity = &quantity
			}
			if cmd.Flags().Changed("materials") {
				opts.CostOfMaterials = &materials
			}
			if cmd.Flags().Changed("labor") {
				opts.CostOfLabor = &labor
			}
			if cmd.Flags().Changed("unit-cost") {
				opts.UnitCost = &unitCost
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.AddSubIntervention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.MasterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&opts.SubcategoryCode, "subcategory-code", "", "catalog subcategory code")
	cmd.Flags().StringVar(&opts.ExpenseCategory, "expense-category", "", "expense category label")
	cmd.Flags().StringVar(&opts.Description, "description", "", "line item description")
	cmd.Flags().StringVar(&opts.QuantityUnit, "unit", "", "quantity unit")
	cmd.Flags().Float64Var(&opts.Cost, "cost", 0, "approved cost")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity")
	cmd.Flags().Float64Var(&materials, "materials", 0, "internal materials cost")
	cmd.Flags().Float64Var(&labor, "labor", 0, "internal labor cost")
	cmd.Flags().Float64Var(&unitCost, "unit-cost", 0, "unit cost")
	cmd.Flags().StringVar(&opts.SelectedEnergySpec, "energy-spec", "", "selected energy specification")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("cost")
	return cmd
}

func subUpdateCmd() *cobra.Command {
	var masterID, subID, description string
	var cost, quantity, materials, labor, implemented float64
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a line item",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.UpdateSubInterventionOptions{
				ProjectID: requireProject(),
				MasterID:  masterID,
				SubID:     subID,
				Actor:     actorID(),
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("cost") {
				opts.Cost = &cost
			}
			if cmd.Flags().Changed("quantity") {
				opts.Quantity = &quantity
			}
			if cmd.Flags().Changed("materials") {
				opts.CostOfMaterials = &materials
			}
			if cmd.Flags().Changed("labor") {
				opts.CostOfLabor = &labor
			}
			if cmd.Flags().Changed("implemented-quantity") {
				opts.ImplementedQuantity = &implemented
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.UpdateSubIntervention(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&subID, "sub-id", "", "line item id")
	cmd.Flags().StringVar(&description, "description", "", "line item description")
	cmd.Flags().Float64Var(&cost, "cost", 0, "approved cost")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "quantity")
	cmd.Flags().Float64Var(&materials, "materials", 0, "internal materials cost")
	cmd.Flags().Float64Var(&labor, "labor", 0, "internal labor cost")
	cmd.Flags().Float64Var(&implemented, "implemented-quantity", 0, "implemented quantity")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("sub-id")
	return cmd
}

func subDeleteCmd() *cobra.Command {
	var masterID, subID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a line item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.DeleteSubIntervention(ctx, requireProject(), masterID, subID, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&subID, "sub-id", "", "line item id")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("sub-id")
	return cmd
}

func subMoveCmd() *cobra.Command {
	var masterID, direction string
	var index int
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Reorder a line item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, moved, err := env.Engine.MoveSubIntervention(ctx, engine.MoveSubInterventionOptions{
					ProjectID: requireProject(),
					MasterID:  masterID,
					Index:     index,
					Direction: direction,
					Actor:     actorID(),
				})
				if err != nil {
					return err
				}
				if !moved {
					fmt.Println("nothing to move")
					return nil
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().IntVar(&index, "index", 0, "current position")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	_ = cmd.MarkFlagRequired("master-id")
	return cmd
}

// --- stage ---

func stageCmd() *cobra.Command {
	st := &cobra.Command{Use: "stage", Short: "Manage execution stages"}
	st.AddCommand(stageAddCmd())
	st.AddCommand(stageUpdateCmd())
	st.AddCommand(stageStatusCmd())
	st.AddCommand(stageDeleteCmd())
	st.AddCommand(stageMoveCmd())
	return st
}

func stageAddCmd() *cobra.Command {
	var opts engine.AddStageOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a stage to an intervention",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ProjectID = requireProject()
			opts.Actor = actorID()
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.AddStage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&opts.MasterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "stage title")
	cmd.Flags().StringVar(&opts.Deadline, "deadline", "", "stage deadline (RFC 3339, within project deadline)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&opts.AssigneeContactID, "assignee", "", "assignee contact id")
	cmd.Flags().StringVar(&opts.SupervisorContactID, "supervisor", "", "supervisor contact id")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func stageUpdateCmd() *cobra.Command {
	var masterID, stageID, title, deadline, notes, assignee, supervisor string
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a stage (not allowed once completed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.UpdateStageOptions{
				ProjectID: requireProject(),
				MasterID:  masterID,
				StageID:   stageID,
				Actor:     actorID(),
			}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("deadline") {
				opts.Deadline = &deadline
			}
			if cmd.Flags().Changed("notes") {
				opts.Notes = &notes
			}
			if cmd.Flags().Changed("assignee") {
				opts.AssigneeContactID = &assignee
			}
			if cmd.Flags().Changed("supervisor") {
				opts.SupervisorContactID = &supervisor
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.UpdateStage(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&stageID, "stage-id", "", "stage id")
	cmd.Flags().StringVar(&title, "title", "", "stage title")
	cmd.Flags().StringVar(&deadline, "deadline", "", "stage deadline (RFC 3339)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	cmd.Flags().StringVar(&assignee, "assignee", "", "assignee contact id")
	cmd.Flags().StringVar(&supervisor, "supervisor", "", "supervisor contact id")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("stage-id")
	return cmd
}

func stageStatusCmd() *cobra.Command {
	var masterID, stageID, status string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Change a stage status along the state machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.TransitionStage(ctx, requireProject(), masterID, stageID, status, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&stageID, "stage-id", "", "stage id")
	cmd.Flags().StringVar(&status, "to", "", "target status (pending, in progress, completed, failed)")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("stage-id")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func stageDeleteCmd() *cobra.Command {
	var masterID, stageID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a stage (not allowed once completed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.DeleteStage(ctx, requireProject(), masterID, stageID, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().StringVar(&stageID, "stage-id", "", "stage id")
	_ = cmd.MarkFlagRequired("master-id")
	_ = cmd.MarkFlagRequired("stage-id")
	return cmd
}

func stageMoveCmd() *cobra.Command {
	var masterID, direction string
	var index int
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Reorder a stage within its status lane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, moved, err := env.Engine.MoveStage(ctx, engine.MoveStageOptions{
					ProjectID: requireProject(),
					MasterID:  masterID,
					Index:     index,
					Direction: direction,
					Actor:     actorID(),
				})
				if err != nil {
					return err
				}
				if !moved {
					fmt.Println("nothing to move")
					return nil
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&masterID, "master-id", "", "intervention id")
	cmd.Flags().IntVar(&index, "index", 0, "current position")
	cmd.Flags().StringVar(&direction, "direction", "up", "up or down")
	_ = cmd.MarkFlagRequired("master-id")
	return cmd
}

// --- contact ---

func contactCmd() *cobra.Command {
	c := &cobra.Command{Use: "contact", Short: "Manage the contact directory"}
	c.AddCommand(contactCreateCmd())
	c.AddCommand(contactListCmd())
	c.AddCommand(contactDeleteCmd())
	return c
}

func contactCreateCmd() *cobra.Command {
	var opts engine.CreateContactOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				c, err := env.Engine.CreateContact(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "contact id (generated when empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "contact name")
	cmd.Flags().StringVar(&opts.Role, "role", "", "role, e.g. engineer or crew lead")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func contactListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				items, err := env.Store.ListContacts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Email", "Phone"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Role, c.Email, c.Phone})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func contactDeleteCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				return env.Store.DeleteContact(ctx, id)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "contact id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// --- audit / profit ---

func auditCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the project audit trail, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.GetProject(ctx, requireProject())
				if err != nil {
					return err
				}
				entries := p.AuditLog
				if n > 0 && len(entries) > n {
					entries = entries[:n]
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Timestamp", "Actor", "Action", "Details"})
				for _, e := range entries {
					tw.AppendRow(table.Row{e.Timestamp, e.Actor, e.Action, e.Details})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func profitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profit",
		Short: "Show project profitability rollup",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				p, err := env.Engine.GetProject(ctx, requireProject())
				if err != nil {
					return err
				}
				summary := metrics.ProjectProfit(p)
				if viper.GetBool("json") {
					return printJSON(summary)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Intervention", "Cost", "Internal", "Profit", "Margin"})
				for _, iv := range p.Interventions {
					s := metrics.InterventionProfit(iv)
					tw.AppendRow(table.Row{iv.DisplayName(),
						fmt.Sprintf("%.2f", s.Cost), fmt.Sprintf("%.2f", s.InternalCost),
						fmt.Sprintf("%.2f", s.Profit), fmt.Sprintf("%.1f%%", s.Margin)})
				}
				tw.AppendFooter(table.Row{"Total",
					fmt.Sprintf("%.2f", summary.Cost), fmt.Sprintf("%.2f", summary.InternalCost),
					fmt.Sprintf("%.2f", summary.Profit), fmt.Sprintf("%.1f%%", summary.Margin)})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage the program catalog"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default renoline.yml catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			codes := make([]string, 0, len(cfg.Categories))
			for code := range cfg.Categories {
				codes = append(codes, code)
			}
			sort.Strings(codes)
			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Code", "Description", "Unit", "Max Unit Price", "Max Amount"})
			for _, code := range codes {
				cat := cfg.Categories[code]
				tw.AppendRow(table.Row{code, cat.Description, cat.Unit,
					fmt.Sprintf("%.2f", cat.MaxUnitPrice), fmt.Sprintf("%.2f", cat.MaxAmount)})
			}
			tw.Render()
			return nil
		},
	}
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowLegacyActor bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer env.Close()
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("RENOLINE_JWT_SECRET"),
				AllowLegacyActorHeader: allowLegacyActor,
			}
			if authCfg.JWTSecret == "" && !allowLegacyActor {
				return fmt.Errorf("RENOLINE_JWT_SECRET is required for bearer auth (or pass --allow-legacy-actor)")
			}
			handler, err := server.New(server.Config{
				Engine:   env.Engine,
				Store:    env.Store,
				BasePath: basePath,
				Auth:     authCfg,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Renoline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowLegacyActor, "allow-legacy-actor", false, "accept the X-Actor-Id header without a token")
	return cmd
}

// --- helpers ---

func withEnv(ctx context.Context, fn func(context.Context, *app.Env) error) error {
	env, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func actorID() string {
	return viper.GetString("actor-id")
}

func requireProject() string {
	return strings.TrimSpace(viper.GetString("project"))
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
