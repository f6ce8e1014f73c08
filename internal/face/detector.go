// Package face implements the face-identity subsystem: model lifecycle,
// embedding extraction, a content-addressed embedding cache, and distance
// comparison.
package face

import (
	"context"
	"image"
)

// Detection is one detected face with its identity embedding.
type Detection struct {
	Box       [4]float64 // x1, y1, x2, y2 in image coordinates
	Score     float64    // detector confidence for this face
	Embedding Vector     // raw embedding; normalization happens downstream
}

// Detector is the detection+embedding capability for one loaded model.
// Implementations are not assumed safe for concurrent use; the Manager
// serializes calls.
type Detector interface {
	Detect(img image.Image) ([]Detection, error)
	Close() error
}

// DetectorFactory initializes a named model variant. Initialization may be
// slow (first use can fetch weights).
type DetectorFactory func(ctx context.Context) (Detector, error)
