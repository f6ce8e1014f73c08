// Package extract implements the extraction decision cascade: native PDF
// text first, then OCR over eligible embedded images, then full-page OCR as
// the last resort.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/homedocs/doc-processor/constants"
	"github.com/homedocs/doc-processor/internal/common"
	"github.com/homedocs/doc-processor/internal/pdfdoc"
)

// PDFExtractor is the PDF side of the cascade.
type PDFExtractor interface {
	Extract(ctx context.Context, pdf []byte) (pdfdoc.Document, error)
	RenderPages(ctx context.Context, pdf []byte, dpi int) ([][]byte, error)
}

// OCR recognizes one image, returning text and a mean confidence in [0, 1].
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, float64, error)
}

type Config struct {
	MaxFileSizeBytes    int64
	MaxImagesToOCR      int // cap on embedded images OCR'd per document
	MinImageSizeForOCR  int // bytes; smaller embedded images are skipped
	NativeTextThreshold int // trimmed native text longer than this skips OCR
	DPI                 int // rasterization DPI for the full-page fallback
}

type Orchestrator struct {
	pdf    PDFExtractor
	ocr    OCR
	cfg    Config
	logger *slog.Logger
}

func NewOrchestrator(pdf PDFExtractor, ocr OCR, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 * 1024 * 1024
	}
	if cfg.MaxImagesToOCR <= 0 {
		cfg.MaxImagesToOCR = 3
	}
	if cfg.MinImageSizeForOCR <= 0 {
		cfg.MinImageSizeForOCR = 10000
	}
	if cfg.NativeTextThreshold <= 0 {
		cfg.NativeTextThreshold = 500
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	return &Orchestrator{pdf: pdf, ocr: ocr, cfg: cfg, logger: logger}
}

// Process dispatches on the filename extension and runs the matching
// extraction strategy. Oversize input is rejected before any stage runs.
func (o *Orchestrator) Process(ctx context.Context, data []byte, filename string) (Result, error) {
	if int64(len(data)) > o.cfg.MaxFileSizeBytes {
		return Result{}, common.Errorf(common.CodeInvalidInput,
			"file too large, maximum size is %dMB", o.cfg.MaxFileSizeBytes/(1024*1024))
	}

	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(filename))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := o.processPDF(ctx, data)
		o.logOutcome(filename, res, start, err)
		return res, err
	case constants.IMAGE:
		res, err := o.processImage(ctx, data)
		o.logOutcome(filename, res, start, err)
		return res, err
	default:
		return Result{}, common.Errorf(common.CodeInvalidInput, "unsupported file type: %s", filename)
	}
}

// processPDF runs the decision cascade over one PDF.
func (o *Orchestrator) processPDF(ctx context.Context, data []byte) (Result, error) {
	doc, err := o.pdf.Extract(ctx, data)
	if err != nil {
		return Result{}, err
	}
	nativeText := doc.Text

	// Long native text means the document is not scanned; skip OCR entirely.
	if len(strings.TrimSpace(nativeText)) > o.cfg.NativeTextThreshold {
		return Result{
			Text:      nativeText,
			PageCount: doc.PageCount,
			Method:    MethodNative,
		}, nil
	}

	eligible := FilterImages(doc.Images, o.cfg.MinImageSizeForOCR, o.cfg.MaxImagesToOCR)
	texts, confidences, err := o.ocrImages(ctx, eligible)
	if err != nil {
		return Result{}, err
	}

	if len(texts) > 0 {
		merged := strings.Join(texts, "\n\n")
		if trimmed := strings.TrimSpace(nativeText); trimmed != "" {
			merged = trimmed + "\n\n" + merged
		}
		conf := mean(confidences)
		return Result{
			Text:       merged,
			PageCount:  doc.PageCount,
			Method:     MethodNativeOCR,
			Confidence: &conf,
		}, nil
	}

	// No embedded image yielded text: rasterize every page and OCR those.
	return o.ocrFullPages(ctx, data)
}

// processImage is the single-stage path for raster image files.
func (o *Orchestrator) processImage(ctx context.Context, data []byte) (Result, error) {
	text, conf, err := o.ocr.Recognize(ctx, data)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Text:       text,
		PageCount:  1,
		Method:     MethodOCR,
		Confidence: &conf,
	}, nil
}

// ocrImages OCRs each image in order. A transient per-image failure is
// logged and the image skipped; images with no text are excluded without
// counting as failures. An engine-fatal error aborts.
func (o *Orchestrator) ocrImages(ctx context.Context, images [][]byte) ([]string, []float64, error) {
	var texts []string
	var confidences []float64
	for i, img := range images {
		text, conf, err := o.ocr.Recognize(ctx, img)
		if err != nil {
			if common.IsCode(err, common.CodeEngineFatal) {
				return nil, nil, err
			}
			o.logger.Warn("embedded image ocr failed, skipping", "index", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		texts = append(texts, text)
		confidences = append(confidences, conf)
	}
	return texts, confidences, nil
}

func (o *Orchestrator) ocrFullPages(ctx context.Context, data []byte) (Result, error) {
	pages, err := o.pdf.RenderPages(ctx, data, o.cfg.DPI)
	if err != nil {
		return Result{}, err
	}
	texts, confidences, err := o.ocrImages(ctx, pages)
	if err != nil {
		return Result{}, err
	}
	conf := mean(confidences)
	return Result{
		Text:       strings.Join(texts, "\n\n"),
		PageCount:  len(pages),
		Method:     MethodOCR,
		Confidence: &conf,
	}, nil
}

func (o *Orchestrator) logOutcome(filename string, res Result, start time.Time, err error) {
	if err != nil {
		o.logger.Error("document processing failed",
			"filename", filename,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return
	}
	attrs := []any{
		"filename", filename,
		"method", res.Method,
		"pages", res.PageCount,
		"chars", len(res.Text),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if res.Confidence != nil {
		attrs = append(attrs, "confidence", fmt.Sprintf("%.3f", *res.Confidence))
	}
	o.logger.Info("document processed", attrs...)
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0.0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
