package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/tldcrawl/internal/config"
	"github.com/nao1215/tldcrawl/internal/database"
	"github.com/nao1215/tldcrawl/internal/report"
)

// defaultHistoryLimit is the number of runs listed by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past crawl runs",
		Long: `History lists crawl runs recorded in the run history database,
newest first, with the number of domains each run discovered.

Pass --run to list the domains first discovered by one run.

Examples:
  # Last 20 runs
  tldcrawl history

  # Domains found by one run
  tldcrawl history --run 5f0c6a3e-8d1b-4c8e-9a55-2f7d3c1e9b10`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", defaultHistoryLimit, "Maximum number of rows, 0 for all")
	cmd.Flags().String("run", "", "List the domains discovered by this run")
	cmd.Flags().String("db-dir", "", "Run history database directory (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open run history (has a crawl been run yet?): %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if runID != "" {
		run, err := db.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		rows, err := db.ListDomains(ctx, run.ID, limit)
		if err != nil {
			return err
		}
		printDomains(out, run, rows)
		return nil
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	known, err := db.KnownDomains(ctx)
	if err != nil {
		return err
	}
	printRuns(out, runs, len(known))
	return nil
}

// printRuns writes one aligned line per run.
func printRuns(out io.Writer, runs []*database.Run, known int) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSUFFIX\tSTATUS\tSTARTED\tDURATION\tPAGES\tNEW DOMAINS\tSTRATEGIES")
	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID,
			r.TargetSuffix,
			r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			duration,
			r.PagesCrawled,
			r.DomainsOwned,
			strings.Join(r.Strategies, ","),
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(out, "\n%d domains known across all runs.\n", known)
}

// printDomains writes the domains of one run.
func printDomains(out io.Writer, run *database.Run, rows []database.DomainRow) {
	fmt.Fprintf(out, "Run %s (%s, %s): %d domains first discovered\n\n",
		run.ID, run.TargetSuffix, run.Status, run.DomainsOwned)
	if len(rows) == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tMETHOD\tDISCOVERED\tTITLE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			r.Domain,
			report.MethodLabel(r.DiscoveryMethod),
			r.DiscoveredAt.Local().Format("2006-01-02 15:04"),
			r.Title,
		)
	}
	_ = tw.Flush()
}
