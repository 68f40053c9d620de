package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgetly/internal/storage"
	"budgetly/internal/wizard"
)

type app struct {
	dbPath string
	user   string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "budgetctl",
		Short:         "Inspect and repair budgetly onboarding data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.dbPath, "db", envOr("SQLITE_DB_PATH", "./data/budgetly.db"), "path to the SQLite database")

	root.AddCommand(a.migrateCmd(), a.onboardingCmd(), a.preferencesCmd())
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (a *app) open() (*storage.SQLiteRepository, error) {
	return storage.NewSQLiteRepository(a.dbPath)
}

func (a *app) userFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.user, "user", "", "user id")
	_ = cmd.MarkFlagRequired("user")
}

func (a *app) requireUser() error {
	if strings.TrimSpace(a.user) == "" {
		return errors.New("--user must not be empty")
	}
	return nil
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := storage.RunMigrations(a.dbPath); err != nil {
				return err
			}
			v, dirty, err := storage.MigrationVersion(a.dbPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", v, dirty)
			return nil
		},
	}
}

func (a *app) onboardingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Inspect or reset a user's onboarding flag",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print whether the user finished onboarding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGate(cmd.Context(), func(ctx context.Context, g *wizard.Gate) error {
				done, err := g.Completed(ctx)
				if err != nil {
					return err
				}
				state := "pending"
				if done {
					state = "completed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.user, state)
				return nil
			})
		},
	}
	a.userFlag(status)

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Clear the onboarded flag so the wizard opens again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withGate(cmd.Context(), func(ctx context.Context, g *wizard.Gate) error {
				if err := g.Reset(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: reset\n", a.user)
				return nil
			})
		},
	}
	a.userFlag(reset)

	cmd.AddCommand(status, reset)
	return cmd
}

func (a *app) withGate(ctx context.Context, fn func(context.Context, *wizard.Gate) error) error {
	if err := a.requireUser(); err != nil {
		return err
	}
	repo, err := a.open()
	if err != nil {
		return err
	}
	defer repo.Close()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, wizard.NewGate(repo.Settings(a.user), ""))
}

func (a *app) preferencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preferences",
		Short: "Show what onboarding saved for a user",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print currency, budget period, fixed costs and categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			repo, err := a.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return a.printPreferences(ctx, cmd.OutOrStdout(), repo)
		},
	}
	a.userFlag(show)
	cmd.AddCommand(show)
	return cmd
}

func (a *app) printPreferences(ctx context.Context, out io.Writer, repo *storage.SQLiteRepository) error {
	prefs, err := repo.Preferences(a.user).GetPreferences(ctx)
	if err != nil {
		return err
	}
	cats, err := repo.Categories(a.user).ListCategories(ctx)
	if err != nil {
		return err
	}
	costs, err := repo.FixedCosts(a.user).ListFixedCosts(ctx)
	if err != nil {
		return err
	}

	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "currency\t%s\n", orDash(string(prefs.Currency)))
	fmt.Fprintf(tw, "budget period\t%s\n", orDash(string(prefs.BudgetPeriod)))
	fmt.Fprintf(tw, "categories\t%d\n", len(cats))
	for i, fc := range costs {
		name := names[fc.CategoryID]
		if name == "" {
			name = fc.CategoryID
		}
		fmt.Fprintf(tw, "fixed cost %d\t%s\t%s\n", i+1, fc.Amount, orDash(name))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
