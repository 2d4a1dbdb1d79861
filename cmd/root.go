// Package cmd implements the page-loader CLI using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gaurav-prasanna/pageloader/core/fetch"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "page-loader <url>",
	Short: "Download a web page with all its local resources",
	Long: `page-loader fetches a single page, downloads the images, scripts and
<link> resources it serves from its own host, rewrites the markup to point
at the local copies and saves everything into the output directory.

Examples:
  page-loader https://example.com/courses
  page-loader -o ./archive https://example.com/courses
  page-loader -d --export md,json https://example.com/courses`,
	Version:       "1.0.0",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLoad,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default ./page-loader.yaml)")
	f.StringP("output", "o", "", "output directory (default: current directory)")
	f.BoolP("debug", "d", false, "enable debug logging")
	f.Duration("timeout", fetch.DefaultTimeout, "timeout for every single request")
	f.Int("concurrency", 0, "max parallel downloads per resource kind (0 = unlimited)")
	f.String("user-agent", fetch.DefaultUserAgent, "User-Agent header sent with every request")
	f.StringSlice("export", nil, "also write companion files: md, json, pdf")
	f.Bool("no-progress", false, "do not display task progress")
}

// Execute runs the root command.
func Execute() {
	// .env is optional.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
