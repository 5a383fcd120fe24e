package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fnolguard/internal/app"
	"fnolguard/internal/domain"
	"fnolguard/internal/handler"
)

// loader builds the wired pipeline. Tests substitute their own.
type loader func(ctx context.Context, verbose bool) (*app.App, error)

type analyzeOptions struct {
	model      string
	prompt     string
	promptFile string
	pretty     bool
}

func newRootCmd(load loader, out io.Writer) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "fnol-analyze",
		Short:         "Fraud review for first notice of loss claims",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(newAnalyzeCmd(func(ctx context.Context) (*app.App, error) { return load(ctx, verbose) }, out))
	root.AddCommand(newModelsCmd(func(ctx context.Context) (*app.App, error) { return load(ctx, verbose) }, out))
	return root
}

func newAnalyzeCmd(load func(context.Context) (*app.App, error), out io.Writer) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze a claim narrative and its supporting files",
		Long: `Stores each file, extracts its metadata, and asks the selected model
for a fraud confidence assessment. The result is printed as JSON in the
same shape the HTTP API returns.

Examples:
  fnol-analyze analyze --model gemini-2.5-flash --prompt "Rear-ended at a light" photo.jpg estimate.pdf
  fnol-analyze analyze --model llama-3.3 --prompt-file narrative.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(opts, args)
			if err != nil {
				return err
			}
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			result, err := a.Analysis.Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(out, handler.NewAnalyzeResponse(result), opts.pretty)
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "model identity (required)")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "claim narrative")
	cmd.Flags().StringVar(&opts.promptFile, "prompt-file", "", "read the claim narrative from a file")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	_ = cmd.MarkFlagRequired("model")
	cmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
	return cmd
}

func newModelsCmd(load func(context.Context) (*app.App, error), out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured model identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := load(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range a.Models.List() {
				status := "available"
				if !m.Available {
					status = "unavailable: " + m.Reason
				}
				fmt.Fprintf(out, "%-24s %-10s %s\n", m.ID, m.Kind, status)
			}
			return nil
		},
	}
}

func buildRequest(opts analyzeOptions, paths []string) (domain.AnalysisRequest, error) {
	req := domain.AnalysisRequest{Model: opts.model, Narrative: opts.prompt}
	if opts.promptFile != "" {
		data, err := os.ReadFile(opts.promptFile)
		if err != nil {
			return req, fmt.Errorf("reading prompt file: %w", err)
		}
		req.Narrative = string(data)
	}
	if strings.TrimSpace(req.Narrative) == "" {
		return req, domain.ErrEmptyNarrative
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return req, fmt.Errorf("reading %s: %w", p, err)
		}
		req.Files = append(req.Files, domain.UploadedFile{
			Filename:    filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        data,
		})
	}
	return req, nil
}

func writeJSON(w io.Writer, v interface{}, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
