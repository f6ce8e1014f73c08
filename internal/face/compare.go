package face

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/homedocs/doc-processor/internal/common"
)

// CompareMeta carries both sides' detection metadata plus timing and cache
// information for one comparison.
type CompareMeta struct {
	A          Meta    `json:"a"`
	B          Meta    `json:"b"`
	TimingMS   float64 `json:"timing_ms"`
	Model      string  `json:"model"`
	CacheUsed  bool    `json:"cache_used"`
	BothCached bool    `json:"both_cached"`
}

// CompareResult is a completed comparison.
type CompareResult struct {
	Distance float64     `json:"distance"`
	Match    bool        `json:"match"`
	Meta     CompareMeta `json:"meta"`
}

// CosineDistance is 1 - dot(a, b) over unit vectors: 0 means identical
// direction, 2 means opposite.
func CosineDistance(a, b Vector) float64 {
	return 1.0 - Dot(a, b)
}

// Comparator reduces two images to a single face distance.
type Comparator struct {
	embedder *Embedder
	logger   *slog.Logger
}

func NewComparator(embedder *Embedder, logger *slog.Logger) *Comparator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Comparator{embedder: embedder, logger: logger}
}

// Compare embeds both images and returns their cosine distance; a match is a
// distance less than or equal to threshold. A side with no detected face
// fails with NO_FACE naming that side.
func (c *Comparator) Compare(ctx context.Context, a, b []byte, threshold float64, useCache bool) (CompareResult, error) {
	start := time.Now()

	ea, metaA, err := c.embedder.Embed(ctx, a, useCache)
	if err != nil {
		return CompareResult{}, err
	}
	if ea == nil {
		return CompareResult{}, common.Errorf(common.CodeNoFace, "no face in a")
	}
	eb, metaB, err := c.embedder.Embed(ctx, b, useCache)
	if err != nil {
		return CompareResult{}, err
	}
	if eb == nil {
		return CompareResult{}, common.Errorf(common.CodeNoFace, "no face in b")
	}

	dist := CosineDistance(ea, eb)
	elapsed := time.Since(start)
	status := c.embedder.Manager().Status()

	c.logger.Debug("face comparison",
		"distance", dist,
		"threshold", threshold,
		"duration_ms", elapsed.Milliseconds(),
		"both_cached", metaA.Cached && metaB.Cached,
	)

	return CompareResult{
		Distance: dist,
		Match:    dist <= threshold,
		Meta: CompareMeta{
			A:          metaA,
			B:          metaB,
			TimingMS:   math.Round(float64(elapsed.Microseconds())/10) / 100,
			Model:      status.Model,
			CacheUsed:  useCache,
			BothCached: metaA.Cached && metaB.Cached,
		},
	}, nil
}
