package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	pdfexport "github.com/nicholasgasior/pdfexport-go"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file|url|->",
	Short: "Export a single PDF",
	Long: `Convert exports one PDF given as a file path, an http(s) URL, or "-" for
standard input. The result is written to --output, or to the delivery's own
file name (<name>-artifacts.zip or <name>.json) in the working directory.
Use --output - to write to standard output.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringP("output", "o", "", `output file, "-" for stdout`)
	f.Int("dpi", pdfexport.DefaultDPI, "resolution bound for extracted images")
	f.Bool("extract-images", false, "extract embedded raster images")
	f.String("image-format", string(pdfexport.ImagePNG), "png, jpeg, gif, bmp or tiff")
	f.Int("max-images", pdfexport.DefaultMaxImages, "maximum number of images per document")
	f.Bool("write-images", false, "store images as files in the archive")
	f.Bool("embed-images", false, "inline images as base64 in the manifest")
	f.Bool("force-text", true, "fall back to raw text for pages that render empty")
	f.Bool("layout", false, "use the layout-aware renderer")
	f.String("format", string(pdfexport.ResponseArchive), "archive or json")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	source := args[0]
	switch {
	case source == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		req.File = data
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		req.PDFURL = source
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return err
		}
		req.File = data
		req.FileName = filepath.Base(source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exp := pdfexport.New(cfg.ExporterOptions(logger)...)
	d, err := exp.Export(ctx, req)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "-" {
		_, err := cmd.OutOrStdout().Write(d.Body)
		return err
	}
	if output == "" {
		output = d.Filename
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, d.Body, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	logger.WithField("file", output).WithField("bytes", len(d.Body)).Info("export written")
	return nil
}

func requestFromFlags(cmd *cobra.Command) (pdfexport.Request, error) {
	f := cmd.Flags()
	var req pdfexport.Request
	var err error

	dpi, _ := f.GetInt("dpi")
	maxImages, _ := f.GetInt("max-images")
	forceText, _ := f.GetBool("force-text")
	req.DPI = &dpi
	req.MaxImages = &maxImages
	req.ForceText = &forceText

	if req.ExtractImages, err = f.GetBool("extract-images"); err != nil {
		return req, err
	}
	if req.WriteImages, err = f.GetBool("write-images"); err != nil {
		return req, err
	}
	if req.EmbedImages, err = f.GetBool("embed-images"); err != nil {
		return req, err
	}
	if req.UseLayout, err = f.GetBool("layout"); err != nil {
		return req, err
	}
	if req.ImageFormat, err = f.GetString("image-format"); err != nil {
		return req, err
	}
	if req.ResponseFormat, err = f.GetString("format"); err != nil {
		return req, err
	}
	return req, nil
}
