package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-structurer/internal/bootstrap"
	"github.com/kirillkom/document-structurer/internal/config"
	"github.com/kirillkom/document-structurer/internal/core/domain"
	"github.com/kirillkom/document-structurer/internal/infrastructure/report/xlsx"
	"github.com/kirillkom/document-structurer/internal/observability/logging"
)

const aknSuffix = "_akn.xml"

var processCmd = &cobra.Command{
	Use:   "process [files or directories...]",
	Short: "Process documents and print structured results",
	Long: "Process each file (directories are walked recursively) through extraction, OCR fallback, " +
		"entity extraction and classification. Legal documents also get an Akoma Ntoso file named <name>_akn.xml.",
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

var (
	processOutDir      string
	processFormat      string
	processReport      string
	processConcurrency int
	processTimeout     time.Duration
	processLogLevel    string
)

func init() {
	processCmd.Flags().StringVarP(&processOutDir, "out", "o", "", "Directory for per-document results (default: print to stdout, write XML next to sources)")
	processCmd.Flags().StringVarP(&processFormat, "format", "f", formatJSON, "Output format: json or yaml")
	processCmd.Flags().StringVar(&processReport, "report", "", "Write an XLSX batch report to this path")
	processCmd.Flags().IntVarP(&processConcurrency, "concurrency", "c", 0, "Documents processed in parallel (default BATCH_CONCURRENCY)")
	processCmd.Flags().DurationVar(&processTimeout, "timeout", 0, "Abort the whole batch after this duration (0 disables)")
	processCmd.Flags().StringVar(&processLogLevel, "log-level", "", "Log level (default LOG_LEVEL)")

	rootCmd.AddCommand(processCmd)
}

// batchProcessor is satisfied by usecase.ProcessDocumentUseCase.
type batchProcessor interface {
	ProcessBatch(ctx context.Context, paths []string, concurrency int) []domain.BatchItem
}

type batchOptions struct {
	OutDir      string
	Format      string
	ReportPath  string
	Concurrency int
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := validateFormat(processFormat); err != nil {
		return err
	}

	cfg := config.Load()
	if processLogLevel != "" {
		cfg.LogLevel = processLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "docproc", cfg.LogLevel)
	slog.SetDefault(logger)

	paths, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents found in %s", strings.Join(args, ", "))
	}

	pipeline, err := bootstrap.BuildPipeline(cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if processTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, processTimeout)
		defer cancel()
	}

	concurrency := processConcurrency
	if concurrency <= 0 {
		concurrency = cfg.BatchConcurrency
	}

	return runBatch(ctx, pipeline.ProcessUC, paths, batchOptions{
		OutDir:      processOutDir,
		Format:      processFormat,
		ReportPath:  processReport,
		Concurrency: concurrency,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runBatch processes paths, writes every output and returns an error when at
// least one document failed. Failures never stop the remaining documents.
func runBatch(ctx context.Context, processor batchProcessor, paths []string, opts batchOptions, stdout, stderr io.Writer) error {
	names, err := outputNames(paths, opts.OutDir)
	if err != nil {
		return err
	}
	items := processor.ProcessBatch(ctx, paths, opts.Concurrency)

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	var outputs []batchOutput
	failed := 0
	for _, item := range items {
		if item.Failed() {
			failed++
			fmt.Fprintf(stderr, "FAILED %s: %v\n", item.Path, item.Err)
		} else if err := writeAkomaNtoso(item, opts.OutDir, names[item.Path]); err != nil {
			return err
		}

		if opts.OutDir != "" {
			if item.Failed() {
				continue
			}
			if err := writeResultFile(item, opts.OutDir, names[item.Path], opts.Format); err != nil {
				return err
			}
			continue
		}
		outputs = append(outputs, newBatchOutput(item))
	}

	if opts.OutDir == "" {
		if err := encodeOutput(stdout, opts.Format, outputs); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}

	if opts.ReportPath != "" {
		if err := writeReport(opts.ReportPath, items); err != nil {
			return err
		}
	}

	fmt.Fprintf(stderr, "processed %d documents, %d failed\n", len(items), failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(items))
	}
	return nil
}

type batchOutput struct {
	Path   string                `json:"path"`
	Result *domain.ProcessResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func newBatchOutput(item domain.BatchItem) batchOutput {
	out := batchOutput{Path: item.Path, Result: item.Result}
	if item.Err != nil {
		out.Error = item.Err.Error()
	}
	return out
}

// writeAkomaNtoso writes <name>_akn.xml next to the source, or into outDir
// when one is given.
func writeAkomaNtoso(item domain.BatchItem, outDir, name string) error {
	if item.Result == nil || item.Result.AkomaNtoso == "" {
		return nil
	}
	dir := filepath.Dir(item.Path)
	if outDir != "" {
		dir = outDir
	}
	target := filepath.Join(dir, name+aknSuffix)
	if err := os.WriteFile(target, []byte(item.Result.AkomaNtoso), 0o644); err != nil {
		return fmt.Errorf("write akoma ntoso %s: %w", target, err)
	}
	return nil
}

func writeResultFile(item domain.BatchItem, outDir, name, format string) error {
	target := filepath.Join(outDir, name+"."+format)
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create result file: %w", err)
	}
	if err := encodeOutput(f, format, item.Result); err != nil {
		_ = f.Close()
		return fmt.Errorf("write result %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close result file: %w", err)
	}
	return nil
}

func writeReport(path string, items []domain.BatchItem) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := xlsx.WriteBatchReport(f, items); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	return nil
}

// expandInputs resolves files and directories into a sorted, de-duplicated
// file list. Hidden entries and previously written Akoma Ntoso files are skipped.
func expandInputs(args []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat input %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(arg))
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if path != arg && strings.HasPrefix(name, ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || strings.HasSuffix(name, aknSuffix) {
				return nil
			}
			add(filepath.Clean(path))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	sort.Strings(out)
	return out, nil
}

// outputNames picks the base name of every input's result and Akoma Ntoso
// files. Inputs sharing a stem in one target directory get their extension
// appended (lease_pdf, lease_txt); a name that still clashes is an error.
func outputNames(paths []string, outDir string) (map[string]string, error) {
	targetDir := func(path string) string {
		if outDir != "" {
			return outDir
		}
		return filepath.Dir(path)
	}

	stems := make(map[string]int, len(paths))
	for _, path := range paths {
		stems[filepath.Join(targetDir(path), stem(path))]++
	}

	names := make(map[string]string, len(paths))
	owners := make(map[string]string, len(paths))
	for _, path := range paths {
		name := stem(path)
		if stems[filepath.Join(targetDir(path), name)] > 1 {
			if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
				name += "_" + ext
			}
		}
		key := filepath.Join(targetDir(path), name)
		if owner, ok := owners[key]; ok {
			return nil, fmt.Errorf("%s and %s would both write %s outputs; process them in separate runs", owner, path, key)
		}
		owners[key] = path
		names[path] = name
	}
	return names, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
