package face

import (
	"context"
	"image"
	"log/slog"
	"sort"
	"sync"

	"github.com/homedocs/doc-processor/internal/common"
)

// ModelStatus reports the manager's current state.
type ModelStatus struct {
	Loaded bool   `json:"loaded"`
	Model  string `json:"model"`
}

// Manager owns the lifecycle of the loaded recognition model: none loaded,
// or exactly one of the registered named variants. Loads are mutually
// exclusive, and all inference through the loaded detector is serialized.
type Manager struct {
	factories map[string]DetectorFactory
	logger    *slog.Logger

	loadMu sync.Mutex // serializes Load end to end

	mu       sync.RWMutex // guards detector + model
	detector Detector
	model    string

	inferMu sync.Mutex // serializes detector calls
}

func NewManager(factories map[string]DetectorFactory, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{factories: factories, logger: logger}
}

// SupportedModels lists the registered model names, sorted.
func (m *Manager) SupportedModels() []string {
	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load loads the named model. Loading the already-loaded model is a no-op;
// a different model releases the current one first. An unsupported name
// fails without touching the current state.
func (m *Manager) Load(ctx context.Context, name string) error {
	factory, ok := m.factories[name]
	if !ok {
		return common.Errorf(common.CodeUnsupportedModel,
			"unsupported model: %q, supported: %v", name, m.SupportedModels())
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.RLock()
	current := m.model
	loaded := m.detector != nil
	m.mu.RUnlock()
	if loaded && current == name {
		return nil
	}

	if loaded {
		m.release()
	}

	m.logger.Info("loading face model", "model", name)
	det, err := factory(ctx)
	if err != nil {
		return common.NewAppError(common.CodeModelUnavailable, "failed to load model "+name, err)
	}

	m.mu.Lock()
	m.detector = det
	m.model = name
	m.mu.Unlock()
	m.logger.Info("face model loaded", "model", name)
	return nil
}

// release drops the current detector. Takes the inference lock so an
// in-flight detection finishes before its detector is closed.
func (m *Manager) release() {
	m.inferMu.Lock()
	defer m.inferMu.Unlock()

	m.mu.Lock()
	det, name := m.detector, m.model
	m.detector = nil
	m.model = ""
	m.mu.Unlock()

	if det != nil {
		if err := det.Close(); err != nil {
			m.logger.Warn("closing face model", "model", name, "error", err)
		}
	}
}

// Close releases any loaded model.
func (m *Manager) Close() {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	m.release()
}

// Status returns the current model state.
func (m *Manager) Status() ModelStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ModelStatus{Loaded: m.detector != nil, Model: m.model}
}

// ModelName returns the loaded model's name, or MODEL_UNAVAILABLE when
// nothing is loaded. Every face operation other than Load goes through this
// precondition.
func (m *Manager) ModelName() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.detector == nil {
		return "", common.Errorf(common.CodeModelUnavailable, "face model not loaded")
	}
	return m.model, nil
}

// Detect runs detection+embedding on img under the inference lock.
// Returns the name of the model that produced the detections.
func (m *Manager) Detect(img image.Image) (string, []Detection, error) {
	m.inferMu.Lock()
	defer m.inferMu.Unlock()

	m.mu.RLock()
	det, name := m.detector, m.model
	m.mu.RUnlock()
	if det == nil {
		return "", nil, common.Errorf(common.CodeModelUnavailable, "face model not loaded")
	}

	faces, err := det.Detect(img)
	if err != nil {
		return name, nil, common.NewAppError(common.CodeEngineFatal, "face detection failed", err)
	}
	return name, faces, nil
}
