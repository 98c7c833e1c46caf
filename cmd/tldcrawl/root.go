package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/tldcrawl/internal/config"
	tlog "github.com/nao1215/tldcrawl/internal/log"
)

// NewRootCmd creates the root command for tldcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tldcrawl",
		Short: "Discover and catalog websites under a national top-level domain",
		Long: `tldcrawl discovers websites registered under one top-level domain
(.rw by default) and keeps a deduplicated catalog of them.

Domains are found through certificate transparency logs, seed pages,
DNS zone transfers, search engine results and subdomain brute forcing.
Every page that is crawled contributes the links it contains.

The catalog is written to <output-dir>/rw_domains.json after every new
domain, so an interrupted crawl never loses results.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogFormatText, "Log format: text or json")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: "+config.DefaultConfigFile+" in current, XDG config or home directory)")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return false
	}
	return verbose
}

// getLogFormat retrieves the log format flag from the command or its parent.
func getLogFormat(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil || format == "" {
		return config.LogFormatText
	}
	return format
}

// newLogger creates the secure structured logger for the given format.
func newLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	if format == config.LogFormatJSON {
		return tlog.NewSecureJSONLogger(w, verbose)
	}
	return tlog.NewSecureLogger(w, verbose)
}
