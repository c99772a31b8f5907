package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/stackoverfix/internal/hermes"
	"github.com/MikeSquared-Agency/stackoverfix/internal/pytrace"
	"github.com/MikeSquared-Agency/stackoverfix/internal/sink"
	"github.com/MikeSquared-Agency/stackoverfix/internal/trace"
)

var (
	copyReport    bool
	publishReport bool
	packagesRoot  string
	recursionKind string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize a Python traceback read from a file or stdin",
	Long: `Reads a CPython traceback from the given file (or stdin when no file is
given or the file is "-") and prints the normalized report as indented JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open traceback: %w", err)
			}
			defer f.Close()
			in = f
		}
		return runNormalize(cmd.Context(), in, cmd.OutOrStdout())
	},
}

func init() {
	normalizeCmd.Flags().BoolVar(&copyReport, "copy", false, "Copy the report to the clipboard")
	normalizeCmd.Flags().BoolVar(&publishReport, "publish", false, "Publish the report on NATS (requires NATS_URL)")
	normalizeCmd.Flags().StringVar(&packagesRoot, "packages-root", "", "Installed-packages root (overrides config)")
	normalizeCmd.Flags().StringVar(&recursionKind, "recursion-kind", "", "Exception type treated as recursion overflow (overrides config)")
}

func runNormalize(ctx context.Context, in io.Reader, out io.Writer) error {
	text, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read traceback: %w", err)
	}
	exc, err := pytrace.Parse(string(text))
	if err != nil {
		return err
	}

	root := cfg.PackagesRoot
	if packagesRoot != "" {
		root = packagesRoot
	}
	if root == "" {
		slog.Warn("no packages root configured and no python interpreter found; every frame is treated as user code")
	}
	kind := cfg.RecursionKind
	if recursionKind != "" {
		kind = recursionKind
	}
	n := trace.New(root, trace.WithRecursionKind(kind))

	sinks := []sink.Sink{sink.Writer{W: out}}
	if copyReport {
		sinks = append(sinks, sink.Clipboard{})
	}
	if publishReport {
		if cfg.NatsURL == "" {
			return fmt.Errorf("--publish requires NATS_URL")
		}
		hc, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return fmt.Errorf("connect NATS: %w", err)
		}
		defer hc.Close()
		defer hc.Flush(ctx)
		sinks = append(sinks, sink.Hermes{Pub: hc, Subject: hermes.SubjectTraceNormalized})
	}

	_, err = sink.ExtractAndDeliver(ctx, n, exc, sinks...)
	return err
}
