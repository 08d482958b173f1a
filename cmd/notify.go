package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/restock-notifier/internal/config"
	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/logger"
	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

// NewNotifyCmd returns the "notify" subcommand, which runs one dispatch batch
// for a product without going through the webhook.
func NewNotifyCmd() *cobra.Command {
	var (
		productID string
		names     []string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send restock notifications for one product",
		Long: `Fetch the registrations for a product and email them, exactly as a
Contentful "in stock" webhook would. Names are given per language:

  restock-notifier notify --product-id 4xYz --name nl=Honingpot --name en="Honey Jar"

With --dry-run the emails are rendered and listed but nothing is sent or deleted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			nameSet, err := parseNames(names)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runNotify(cmd.Context(), cfg, productID, nameSet, dryRun, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&productID, "product-id", "", "Contentful entry id of the product (required)")
	cmd.Flags().StringArrayVar(&names, "name", nil, "Product name as lang=Name; repeat for each language (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Render the emails without sending or deleting anything")
	_ = cmd.MarkFlagRequired("product-id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// parseNames turns repeated lang=Name flags into a ProductNameSet.
func parseNames(pairs []string) (restock.ProductNameSet, error) {
	names := restock.ProductNameSet{}
	for _, p := range pairs {
		lang, name, ok := strings.Cut(p, "=")
		lang = restock.NormalizeLanguage(lang)
		name = strings.TrimSpace(name)
		if !ok || lang == "" || name == "" {
			return nil, fmt.Errorf("invalid --name %q: want lang=Name", p)
		}
		names[lang] = name
	}
	if !names.HasAny() {
		return nil, fmt.Errorf("at least one --name is required")
	}
	return names, nil
}

func runNotify(parent context.Context, cfg *config.AppConfig, productID string, names restock.ProductNameSet, dryRun bool, stdout, stderr io.Writer) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sysLogger, logCloser, err := logger.New(stderr, cfg.LogDir, cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close()

	a, err := buildApp(cfg, sysLogger)
	if err != nil {
		return err
	}
	defer a.close()

	if dryRun {
		return dryRunNotify(ctx, a, productID, names, stdout)
	}

	report, err := a.restockSvc.Notify(ctx, productID, names)
	if err != nil {
		return err
	}
	printReport(stdout, report)
	if failed := report.SendFailed + report.DeleteFailed + report.RenderFailed; failed > 0 {
		return fmt.Errorf("%d of %d deliveries did not complete", failed, report.Total)
	}
	return nil
}

func dryRunNotify(ctx context.Context, a *app, productID string, names restock.ProductNameSet, w io.Writer) error {
	regs, err := a.registration.FetchRegistrations(ctx, productID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tLANGUAGE\tSUBJECT")
	for _, reg := range regs {
		rendered, err := a.composer.Render(reg, names)
		if err != nil {
			fmt.Fprintf(tw, "%s\t%s\t(render failed: %v)\n", reg.Email, reg.Language, err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", reg.Email, rendered.Language, rendered.Subject)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d registration(s) for product %s; nothing was sent.\n", len(regs), productID)
	return nil
}

func printReport(w io.Writer, r dispatch.Report) {
	fmt.Fprintf(w, "batch %s: %d registration(s) in %s\n", r.BatchID, r.Total, r.Duration.Round(1e6))
	fmt.Fprintf(w, "  sent %d, deleted %d, send failed %d, delete failed %d, render failed %d\n",
		r.Sent, r.Deleted, r.SendFailed, r.DeleteFailed, r.RenderFailed)
	for _, o := range r.Outcomes {
		if o.Err == nil {
			continue
		}
		fmt.Fprintf(w, "  %s %s (%s): %v\n", o.State, o.Registration.Email, o.Registration.EntryID, o.Err)
	}
}
