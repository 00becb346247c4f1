// Package cmd implements the pdfminimize command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pdf_minimizer/config"
	"pdf_minimizer/logger"
	"pdf_minimizer/pdf"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	target     string
	pages      string
	failFast   bool
	logLevel   string
	logFormat  string
}

// Execute runs the command line and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pdfminimize: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the pdfminimize command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pdfminimize <input.pdf>",
		Short: "Shrink a PDF below a target size",
		Long: `Recompresses the document structure first, then re-encodes embedded images
at half and quarter resolution with low JPEG quality, stopping at the first
result below the target. The result is written next to the input as
minimized_<name>.`,
		Args:          inputArg,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMinimize(cmd, opts, args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath(), "Path to pdfminimize.toml")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (text, json)")

	root.Flags().StringVarP(&opts.target, "target", "t", "", "Target size, e.g. 1MiB, 500KB or 204800 (default 1MiB)")
	root.Flags().StringVarP(&opts.pages, "pages", "p", "", "Only re-encode images on these pages, e.g. 1,3-5")
	root.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Abort when an image cannot be decoded instead of leaving it as is")

	root.AddCommand(newServeCommand(opts), newInspectCommand(opts))
	return root
}

// inputArg requires exactly one input file and shows usage otherwise.
func inputArg(cmd *cobra.Command, args []string) error {
	if err := cobra.ExactArgs(1)(cmd, args); err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		return fmt.Errorf("expected one input PDF: %w", err)
	}
	return nil
}

func defaultConfigPath() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return config.DefaultConfigPath
}

// loadConfig reads the configuration file and initialises the logger.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
	logger.InitWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	logger.Debug("config loaded",
		slog.String("path", opts.configPath),
		slog.Int64("target_size", cfg.Reduce.TargetSize),
		slog.Int("passes", len(cfg.Reduce.Options().Passes)))
	return cfg, nil
}

// reduceOptions merges command line flags over the [reduce] section.
func reduceOptions(cmd *cobra.Command, cfg config.Config, opts *rootOptions) (pdf.Options, error) {
	ro := cfg.Reduce.Options()
	ro.Logger = logger.L

	if opts.target != "" {
		size, err := ParseSize(opts.target)
		if err != nil {
			return ro, fmt.Errorf("--target: %w", err)
		}
		ro.TargetSize = size
	}
	if opts.pages != "" {
		pages, err := pdf.ParsePageSpecifier(opts.pages)
		if err != nil {
			return ro, fmt.Errorf("--pages: %w", err)
		}
		ro.Pages = pages
	}
	if cmd.Flags().Changed("fail-fast") {
		ro.FailFast = opts.failFast
	}
	return ro, nil
}

func runMinimize(cmd *cobra.Command, opts *rootOptions, input string) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	ro, err := reduceOptions(cmd, cfg, opts)
	if err != nil {
		return err
	}

	logger.Info("minimizing", slog.String("input", input), slog.String("target", FormatBytes(ro.TargetSize)))

	res, err := pdf.Reduce(input, ro)
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *pdf.Result) {
	for _, p := range res.Passes {
		printInfo(w, fmt.Sprintf("pass %d (%s): %s, %d image(s) re-encoded, %d skipped",
			p.Index, p.Pass, FormatBytes(p.Size), p.ImagesTranscoded, p.ImagesSkipped))
	}

	fmt.Fprintf(w, "Original size:  %s\n", FormatBytes(res.OriginalSize))
	fmt.Fprintf(w, "Minimized size: %s (%.1f%% smaller)\n", FormatBytes(res.FinalSize), res.ReductionPercent())

	if res.TargetMet {
		printSuccess(w, fmt.Sprintf("Wrote %s", res.OutputPath))
	} else {
		printWarning(w, fmt.Sprintf("Wrote %s, still above the %s target", res.OutputPath, FormatBytes(res.TargetSize)))
	}
}
