// docproc is a one-shot CLI over the extraction core, for local runs and
// debugging without the daemon.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/homedocs/doc-processor/internal/common"
	"github.com/homedocs/doc-processor/internal/extract"
	"github.com/homedocs/doc-processor/internal/face"
	"github.com/homedocs/doc-processor/internal/ocr"
	"github.com/homedocs/doc-processor/internal/pdfdoc"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "docproc",
	Short: "Document processing tools (text extraction, thumbnails)",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		lvl := slog.LevelWarn
		if verbose {
			lvl = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	},
}

var processCmd = &cobra.Command{
	Use:   "process <file>",
	Short: "Extract text from a PDF or image file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := common.LoadConfig()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		orchestrator := buildOrchestrator(cfg)
		res, err := orchestrator.Process(cmd.Context(), data, args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var thumbnailSize int

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail <file.pdf> <out.png>",
	Short: "Render the first page of a PDF as a PNG thumbnail",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := common.LoadConfig()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		pdf := pdfdoc.NewExtractor(popplerConfig(cfg), slog.Default())
		thumb, err := pdf.Thumbnail(cmd.Context(), data, thumbnailSize)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], thumb.PNG, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %s (%dx%d)\n", args[1], thumb.Width, thumb.Height)
		return nil
	},
}

var (
	faceModel     string
	faceThreshold float64
)

var faceCmd = &cobra.Command{
	Use:   "face",
	Short: "Face identity tools",
}

var faceCompareCmd = &cobra.Command{
	Use:   "compare <a.jpg> <b.jpg>",
	Short: "Compare the faces in two images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := common.LoadConfig()
		a, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		b, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}

		manager := face.NewManager(face.DlibFactories(cfg.Face.ModelsDir), slog.Default())
		defer manager.Close()
		if err := manager.Load(cmd.Context(), faceModel); err != nil {
			return err
		}

		threshold := faceThreshold
		if threshold < 0 {
			threshold = cfg.Face.DefaultMatchThreshold
		}
		comparator := face.NewComparator(face.NewEmbedder(manager, nil, slog.Default()), slog.Default())
		res, err := comparator.Compare(cmd.Context(), a, b, threshold, false)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"distance":  res.Distance,
			"threshold": threshold,
			"match":     res.Match,
			"meta":      res.Meta,
		})
	},
}

func buildOrchestrator(cfg *common.Config) *extract.Orchestrator {
	pdf := pdfdoc.NewExtractor(popplerConfig(cfg), slog.Default())
	adapter := ocr.NewAdapter(ocr.NewTesseractEngine(), ocr.Config{
		Languages:         cfg.OCR.Languages,
		MaxImageDimension: cfg.OCR.MaxImageDimension,
	}, slog.Default())
	return extract.NewOrchestrator(pdf, adapter, extract.Config{
		MaxFileSizeBytes:    cfg.Extraction.MaxFileSizeBytes,
		MaxImagesToOCR:      cfg.Extraction.MaxImagesToOCR,
		MinImageSizeForOCR:  cfg.Extraction.MinImageSizeForOCR,
		NativeTextThreshold: cfg.Extraction.NativeTextThreshold,
		DPI:                 cfg.OCR.DPI,
	}, slog.Default())
}

func popplerConfig(cfg *common.Config) pdfdoc.Config {
	return pdfdoc.Config{
		Pdftotext: cfg.PDF.Pdftotext,
		Pdftoppm:  cfg.PDF.Pdftoppm,
		Pdfimages: cfg.PDF.Pdfimages,
		Pdfinfo:   cfg.PDF.Pdfinfo,
	}
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(strings.TrimSpace(string(out)))
	return nil
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	thumbnailCmd.Flags().IntVar(&thumbnailSize, "size", 150, "max thumbnail dimension in pixels")
	faceCompareCmd.Flags().StringVar(&faceModel, "model", face.ModelDlibHOG, "face model to load")
	faceCompareCmd.Flags().Float64Var(&faceThreshold, "threshold", -1, "match threshold (default from env)")
	faceCmd.AddCommand(faceCompareCmd)
	rootCmd.AddCommand(processCmd, thumbnailCmd, faceCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
