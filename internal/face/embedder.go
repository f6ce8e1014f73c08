package face

import (
	"bytes"
	"context"
	"image"
	"log/slog"

	"github.com/homedocs/doc-processor/internal/common"
)

// Embedder turns an image into the identity embedding of its canonical face:
// the detected face with the largest bounding-box area, L2-normalized.
type Embedder struct {
	manager *Manager
	cache   Cache
	logger  *slog.Logger
}

func NewEmbedder(manager *Manager, cache Cache, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{manager: manager, cache: cache, logger: logger}
}

// Embed extracts the canonical face embedding from imageData. A nil vector
// with FaceCount 0 means no face was found; that is not an error. With
// useCache, a previously computed embedding for the same image content and
// model is returned without running inference.
func (e *Embedder) Embed(ctx context.Context, imageData []byte, useCache bool) (Vector, Meta, error) {
	select {
	case <-ctx.Done():
		return nil, Meta{}, ctx.Err()
	default:
	}

	model, err := e.manager.ModelName()
	if err != nil {
		return nil, Meta{}, err
	}

	useCache = useCache && e.cache != nil
	var key string
	if useCache {
		key = CacheKey(imageData, model)
		entry, err := e.cache.Get(key)
		if err != nil {
			e.logger.Warn("embedding cache read failed", "error", err)
		} else if entry != nil {
			meta := entry.Meta
			meta.Cached = true
			return entry.Embedding, meta, nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, Meta{}, common.NewAppError(common.CodeInvalidInput, "failed to decode image", err)
	}

	_, faces, err := e.manager.Detect(img)
	if err != nil {
		return nil, Meta{}, err
	}
	if len(faces) == 0 {
		return nil, Meta{FaceCount: 0, Cached: false}, nil
	}

	best := largestFace(faces)
	vec := best.Embedding.Normalized()
	meta := Meta{
		FaceCount: len(faces),
		Box:       []float64{best.Box[0], best.Box[1], best.Box[2], best.Box[3]},
		Score:     best.Score,
		Cached:    false,
	}

	if useCache {
		if err := e.cache.Set(key, Entry{Embedding: vec, Meta: meta}); err != nil {
			e.logger.Warn("embedding cache write failed", "error", err)
		}
	}
	return vec, meta, nil
}

// Manager exposes the model manager backing this embedder.
func (e *Embedder) Manager() *Manager { return e.manager }

// largestFace picks the face with the largest bounding-box area; ties go to
// the first one encountered.
func largestFace(faces []Detection) Detection {
	best := faces[0]
	bestArea := area(best.Box)
	for _, f := range faces[1:] {
		if a := area(f.Box); a > bestArea {
			best = f
			bestArea = a
		}
	}
	return best
}

func area(box [4]float64) float64 {
	return (box[2] - box[0]) * (box[3] - box[1])
}
