package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/your-org/storefront-membership/internal/app"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/pkg/auth"
	"github.com/your-org/storefront-membership/internal/pkg/email"
	"github.com/your-org/storefront-membership/internal/pkg/logger"
)

// withApp loads configuration, builds the application and closes it after fn
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	a, err := app.New(cfg, logger.New(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(context.Background(), a)
}

func migrateCmd() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.Migrate(ctx, seed)
			})
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", false, "Seed demo data after migrating")
	return cmd
}

func expireCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "expire",
		Short: "Expire active memberships past their expiration date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				expired, err := a.Membership.ExpireDue(ctx, dryRun)
				if err != nil {
					return err
				}
				printExpired(cmd.OutOrStdout(), expired, dryRun)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the memberships without changing them")
	return cmd
}

func printExpired(w io.Writer, expired []membership.Membership, dryRun bool) {
	verb := "Expired"
	if dryRun {
		verb = "Would expire"
	}
	for _, m := range expired {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.CustomerID, m.ExpirationDate.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "%s %d membership(s)\n", verb, len(expired))
}

func exportCmd() *cobra.Command {
	var (
		format     string
		customerID string
		since      string
		until      string
		eventTypes []string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export membership analytics events",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter(customerID, since, until, eventTypes)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, a *app.App) error {
				export, err := a.Analytics.Export(ctx, filter, format, a.PDF)
				if err != nil {
					return err
				}

				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(export.Body)
					return err
				}
				if err := os.WriteFile(out, export.Body, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes to %s\n", len(export.Body), out)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", analytics.FormatCSV, "Output format (json, csv, pdf)")
	cmd.Flags().StringVar(&customerID, "customer", "", "Only events of this customer")
	cmd.Flags().StringVar(&since, "since", "", "Start date, inclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&until, "until", "", "End date, exclusive (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringSliceVar(&eventTypes, "type", nil, "Only these event types")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func buildFilter(customerID, since, until string, eventTypes []string) (analytics.Filter, error) {
	filter := analytics.Filter{CustomerID: customerID}

	for _, t := range eventTypes {
		eventType := analytics.EventType(strings.TrimSpace(t))
		if !eventType.Valid() {
			return filter, fmt.Errorf("unknown event type %q", t)
		}
		filter.Types = append(filter.Types, eventType)
	}

	var err error
	if filter.Since, err = parseDateFlag("since", since); err != nil {
		return filter, err
	}
	if filter.Until, err = parseDateFlag("until", until); err != nil {
		return filter, err
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Until.After(filter.Since) {
		return filter, fmt.Errorf("--until must be after --since")
	}
	return filter, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: use YYYY-MM-DD or RFC 3339", name, value)
	}
	return t, nil
}

func tokenCmd() *cobra.Command {
	var (
		customerID string
		emailAddr  string
		staff      bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to issue tokens in production")
			}

			token, err := auth.NewJWTManager(cfg.JWT).GenerateAccessToken(customerID, emailAddr, staff)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&customerID, "customer", "", "Customer id (required)")
	cmd.Flags().StringVar(&emailAddr, "email", "", "Customer e-mail")
	cmd.Flags().BoolVar(&staff, "staff", false, "Grant staff access")
	_ = cmd.MarkFlagRequired("customer")
	return cmd
}

func emailTestCmd() *cobra.Command {
	var (
		to         string
		transition string
	)

	cmd := &cobra.Command{
		Use:   "email-test",
		Short: "Send a sample membership e-mail through the configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			cfg.Email.Enabled = true

			svc := email.NewEmailService(cfg, logger.New(cfg))
			now := time.Now().UTC()
			sample := &membership.Membership{
				ID:             "sample",
				CustomerID:     "sample",
				Status:         membership.StatusActive,
				StartDate:      now,
				ExpirationDate: now.Add(cfg.Membership.Term),
				Benefits:       membership.PlanFromConfig(cfg).Benefits(),
			}
			if sample.Benefits.AnnualFee.IsZero() {
				sample.Benefits.AnnualFee = decimal.NewFromInt(99)
			}

			if err := svc.NotifyMembership(cmd.Context(), membership.Transition(transition), sample, to); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent %s e-mail to %s\n", transition, to)
			return nil
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "Recipient address (required)")
	cmd.Flags().StringVar(&transition, "transition", string(membership.TransitionSignup), "signup, renewal, cancelled or expired")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
