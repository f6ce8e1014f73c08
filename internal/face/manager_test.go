package face

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/homedocs/doc-processor/internal/common"
)

type stubDetector struct {
	faces  []Detection
	detErr error
	calls  int
	closed bool
}

func (d *stubDetector) Detect(img image.Image) ([]Detection, error) {
	d.calls++
	return d.faces, d.detErr
}

func (d *stubDetector) Close() error {
	d.closed = true
	return nil
}

func newTestManager(t *testing.T, detectors map[string]*stubDetector) (*Manager, map[string]*int) {
	t.Helper()
	factories := make(map[string]DetectorFactory, len(detectors))
	loads := make(map[string]*int, len(detectors))
	for name, det := range detectors {
		name, det := name, det
		n := new(int)
		loads[name] = n
		factories[name] = func(ctx context.Context) (Detector, error) {
			*n++
			return det, nil
		}
	}
	return NewManager(factories, nil), loads
}

func TestManagerStartsUnloaded(t *testing.T) {
	m, _ := newTestManager(t, map[string]*stubDetector{"alpha": {}})
	if st := m.Status(); st.Loaded || st.Model != "" {
		t.Errorf("fresh manager status = %+v", st)
	}
	if _, err := m.ModelName(); !common.IsCode(err, common.CodeModelUnavailable) {
		t.Errorf("expected MODEL_UNAVAILABLE, got %v", err)
	}
	if _, _, err := m.Detect(image.NewRGBA(image.Rect(0, 0, 1, 1))); !common.IsCode(err, common.CodeModelUnavailable) {
		t.Errorf("expected MODEL_UNAVAILABLE from Detect, got %v", err)
	}
}

func TestManagerLoadIsIdempotent(t *testing.T) {
	m, loads := newTestManager(t, map[string]*stubDetector{"alpha": {}})
	ctx := context.Background()

	if err := m.Load(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if *loads["alpha"] != 1 {
		t.Errorf("factory ran %d times, want 1", *loads["alpha"])
	}
	if st := m.Status(); !st.Loaded || st.Model != "alpha" {
		t.Errorf("status = %+v", st)
	}
}

func TestManagerSwitchReleasesOldDetector(t *testing.T) {
	alpha, beta := &stubDetector{}, &stubDetector{}
	m, _ := newTestManager(t, map[string]*stubDetector{"alpha": alpha, "beta": beta})
	ctx := context.Background()

	if err := m.Load(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := m.Load(ctx, "beta"); err != nil {
		t.Fatal(err)
	}
	if !alpha.closed {
		t.Error("previous detector not closed on switch")
	}
	if beta.closed {
		t.Error("new detector closed prematurely")
	}
	if name, _ := m.ModelName(); name != "beta" {
		t.Errorf("model = %q, want beta", name)
	}
}

func TestManagerUnsupportedModelLeavesStateUnchanged(t *testing.T) {
	m, _ := newTestManager(t, map[string]*stubDetector{"alpha": {}})
	ctx := context.Background()
	if err := m.Load(ctx, "alpha"); err != nil {
		t.Fatal(err)
	}

	err := m.Load(ctx, "nope")
	if !common.IsCode(err, common.CodeUnsupportedModel) {
		t.Fatalf("expected UNSUPPORTED_MODEL, got %v", err)
	}
	if st := m.Status(); !st.Loaded || st.Model != "alpha" {
		t.Errorf("status after failed load = %+v, want alpha still loaded", st)
	}
}

func TestManagerFactoryFailure(t *testing.T) {
	m := NewManager(map[string]DetectorFactory{
		"broken": func(ctx context.Context) (Detector, error) {
			return nil, errors.New("weights missing")
		},
	}, nil)

	err := m.Load(context.Background(), "broken")
	if !common.IsCode(err, common.CodeModelUnavailable) {
		t.Fatalf("expected MODEL_UNAVAILABLE, got %v", err)
	}
	if st := m.Status(); st.Loaded {
		t.Errorf("status after factory failure = %+v", st)
	}
}

func TestManagerDetectWrapsEngineError(t *testing.T) {
	det := &stubDetector{detErr: errors.New("dlib blew up")}
	m, _ := newTestManager(t, map[string]*stubDetector{"alpha": det})
	if err := m.Load(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}

	_, _, err := m.Detect(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if !common.IsCode(err, common.CodeEngineFatal) {
		t.Fatalf("expected ENGINE_FATAL, got %v", err)
	}
}

func TestManagerClose(t *testing.T) {
	det := &stubDetector{}
	m, _ := newTestManager(t, map[string]*stubDetector{"alpha": det})
	if err := m.Load(context.Background(), "alpha"); err != nil {
		t.Fatal(err)
	}

	m.Close()
	if !det.closed {
		t.Error("Close did not release the detector")
	}
	if st := m.Status(); st.Loaded || st.Model != "" {
		t.Errorf("status after close = %+v", st)
	}
}

func TestSupportedModelsSorted(t *testing.T) {
	m, _ := newTestManager(t, map[string]*stubDetector{"zeta": {}, "alpha": {}})
	got := m.SupportedModels()
	if len(got) != 2 || got[0] != "alpha" || got[1] != "zeta" {
		t.Errorf("SupportedModels() = %v", got)
	}
}
