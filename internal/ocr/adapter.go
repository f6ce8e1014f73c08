// Package ocr adapts an OCR engine to the extraction pipeline: images are
// normalized (resize, RGB flattening) before inference, and per-token
// confidences are reduced to a single mean score.
package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/homedocs/doc-processor/internal/common"
)

type Config struct {
	Languages         []string // Tesseract language codes, default "eng"
	MaxImageDimension int      // longer side above this is resized down, default 1500
}

type Adapter struct {
	engine Engine
	cfg    Config
	logger *slog.Logger
}

func NewAdapter(engine Engine, cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.MaxImageDimension <= 0 {
		cfg.MaxImageDimension = 1500
	}
	return &Adapter{engine: engine, cfg: cfg, logger: logger}
}

// Recognize runs OCR on a single image and returns the recognized text with
// the mean token confidence. No detected tokens yields ("", 0.0, nil).
//
// Errors are classified: an unavailable engine is ENGINE_FATAL and must abort
// the whole operation; anything else is TRANSIENT_ITEM and the caller may
// skip the image.
func (a *Adapter) Recognize(ctx context.Context, image []byte) (string, float64, error) {
	normalized, err := NormalizeForOCR(image, a.cfg.MaxImageDimension)
	if err != nil {
		return "", 0, common.NewAppError(common.CodeTransientItem, "image not decodable", err)
	}

	tokens, err := a.engine.Recognize(ctx, normalized, a.cfg.Languages)
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return "", 0, common.NewAppError(common.CodeEngineFatal, "ocr engine unavailable", err)
		}
		return "", 0, common.NewAppError(common.CodeTransientItem, "ocr failed", err)
	}
	if len(tokens) == 0 {
		return "", 0.0, nil
	}

	texts := make([]string, 0, len(tokens))
	var sum float64
	for _, t := range tokens {
		texts = append(texts, t.Text)
		sum += t.Confidence
	}
	return Normalize(strings.Join(texts, " ")), sum / float64(len(tokens)), nil
}
