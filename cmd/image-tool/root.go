package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/codec"
	"github.com/DMarby/image-api/internal/image/pipeline"
	"github.com/DMarby/image-api/internal/logger"
	"github.com/DMarby/image-api/internal/tracing"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	output  string
	format  string
	quality int
)

var rootCmd = &cobra.Command{
	Use:   "image-tool",
	Short: "Convert, resize, crop, watermark and inspect images on disk",
	Long: `image-tool runs the image-api processing pipeline against local files.

Image producing commands write next to the input unless --output is given,
info and metadata print JSON to stdout.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// addOutputFlags adds the flags shared by the image producing commands
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path, derived from the input when empty")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format (avif, webp, png, jpg)")
	cmd.Flags().IntVarP(&quality, "quality", "q", image.DefaultQuality, "output quality (1-100)")
	cmd.MarkFlagRequired("format")
}

func outputOptions() (image.Output, error) {
	f, err := image.ParseFormat(format)
	if err != nil {
		return image.Output{}, err
	}

	return image.Output{Format: f, Quality: quality}, nil
}

// process reads the input file and runs a task through a single worker pipeline
func process(ctx context.Context, input string, task image.Task) (*image.Result, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input, err)
	}

	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}

	log := logger.New(level)
	defer log.Sync()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	processor := pipeline.New(ctx, log, tracing.Noop(log, "image-tool"), runtime.NumCPU(), codec.New(), nil)

	result, err := processor.ProcessImage(ctx, data, task)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", image.KindOf(err), image.Message(err))
	}

	return result, nil
}

// outputPath names the output after the input, e.g. photo.jpg becomes photo_resized.webp
func outputPath(input string, suffix string, f image.Format) string {
	if output != "" {
		return output
	}

	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix + "." + f.Extension()
}

// runImage runs an image producing task and writes the result
func runImage(cmd *cobra.Command, input string, suffix string, task image.Task) error {
	result, err := process(cmd.Context(), input, task)
	if err != nil {
		return err
	}

	path := outputPath(input, suffix, result.Format)
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", path, len(result.Data))
	return nil
}

// runReport runs a reporting task and prints the report as JSON
func runReport(cmd *cobra.Command, input string, task image.Task) error {
	result, err := process(cmd.Context(), input, task)
	if err != nil {
		return err
	}

	if report, ok := result.Report.(*image.MetadataReport); ok {
		report.Filename = filepath.Base(input)
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(result.Report)
}
