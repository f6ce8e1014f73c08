package face

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	goface "github.com/Kagami/go-face"
)

// Registered dlib model variants: HOG detection (fast, CPU-friendly) and
// CNN detection (slower, more accurate). Both read the dlib data files from
// the models directory and emit 128-dim descriptors.
const (
	ModelDlibHOG = "dlib-hog"
	ModelDlibCNN = "dlib-cnn"
)

// DlibFactories returns the detector factories for the dlib-backed variants,
// keyed by model name, for registration with a Manager.
func DlibFactories(modelsDir string) map[string]DetectorFactory {
	return map[string]DetectorFactory{
		ModelDlibHOG: func(ctx context.Context) (Detector, error) { return newDlibDetector(ctx, modelsDir, false) },
		ModelDlibCNN: func(ctx context.Context) (Detector, error) { return newDlibDetector(ctx, modelsDir, true) },
	}
}

type dlibDetector struct {
	rec *goface.Recognizer
	cnn bool
}

func newDlibDetector(ctx context.Context, modelsDir string, cnn bool) (Detector, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("init dlib recognizer from %s: %w", modelsDir, err)
	}
	return &dlibDetector{rec: rec, cnn: cnn}, nil
}

func (d *dlibDetector) Detect(img image.Image) ([]Detection, error) {
	// go-face only consumes JPEG payloads.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode for detector: %w", err)
	}

	var faces []goface.Face
	var err error
	if d.cnn {
		faces, err = d.rec.RecognizeCNN(buf.Bytes())
	} else {
		faces, err = d.rec.Recognize(buf.Bytes())
	}
	if err != nil {
		return nil, err
	}

	out := make([]Detection, 0, len(faces))
	for _, f := range faces {
		r := f.Rectangle
		out = append(out, Detection{
			Box: [4]float64{float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)},
			// dlib exposes no per-face score; detector-accepted faces get 1.0.
			Score:     1.0,
			Embedding: Vector(f.Descriptor[:]).Clone(),
		})
	}
	return out, nil
}

func (d *dlibDetector) Close() error {
	d.rec.Close()
	return nil
}
