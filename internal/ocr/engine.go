package ocr

import (
	"context"
	"errors"
)

// Token is one recognized text token with the engine's confidence in [0, 1].
type Token struct {
	Text       string
	Confidence float64
}

// Engine is the OCR capability: image bytes in, recognized tokens out.
type Engine interface {
	Recognize(ctx context.Context, image []byte, languages []string) ([]Token, error)
}

// ErrEngineUnavailable marks an engine that cannot run at all, as opposed to
// a transient per-call failure. Callers must not skip-and-continue past it.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")
