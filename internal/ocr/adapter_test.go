package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/homedocs/doc-processor/internal/common"
)

type stubEngine struct {
	tokens []Token
	err    error
	calls  int
	lastIn []byte
}

func (s *stubEngine) Recognize(ctx context.Context, img []byte, languages []string) ([]Token, error) {
	s.calls++
	s.lastIn = img
	return s.tokens, s.err
}

// testPNG encodes a white image of the given size.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAdapterMeanConfidence(t *testing.T) {
	engine := &stubEngine{tokens: []Token{
		{Text: "hello", Confidence: 0.5},
		{Text: "world", Confidence: 1.0},
	}}
	a := NewAdapter(engine, Config{}, nil)

	text, conf, err := a.Recognize(context.Background(), testPNG(t, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if conf != 0.75 {
		t.Errorf("confidence = %v, want 0.75", conf)
	}
}

func TestAdapterNoTokens(t *testing.T) {
	a := NewAdapter(&stubEngine{}, Config{}, nil)
	text, conf, err := a.Recognize(context.Background(), testPNG(t, 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	if text != "" || conf != 0.0 {
		t.Errorf("got (%q, %v), want empty text and 0.0 confidence", text, conf)
	}
}

func TestAdapterUndecodableImageIsTransient(t *testing.T) {
	a := NewAdapter(&stubEngine{}, Config{}, nil)
	_, _, err := a.Recognize(context.Background(), []byte("not an image"))
	if !common.IsCode(err, common.CodeTransientItem) {
		t.Fatalf("expected TRANSIENT_ITEM, got %v", err)
	}
}

func TestAdapterEngineUnavailableIsFatal(t *testing.T) {
	engine := &stubEngine{err: errors.Join(ErrEngineUnavailable, errors.New("missing traineddata"))}
	a := NewAdapter(engine, Config{}, nil)

	_, _, err := a.Recognize(context.Background(), testPNG(t, 10, 10))
	if !common.IsCode(err, common.CodeEngineFatal) {
		t.Fatalf("expected ENGINE_FATAL, got %v", err)
	}
}

func TestAdapterTransientEngineError(t *testing.T) {
	a := NewAdapter(&stubEngine{err: errors.New("segfault adjacent")}, Config{}, nil)
	_, _, err := a.Recognize(context.Background(), testPNG(t, 10, 10))
	if !common.IsCode(err, common.CodeTransientItem) {
		t.Fatalf("expected TRANSIENT_ITEM, got %v", err)
	}
}

func TestAdapterResizesLargeImages(t *testing.T) {
	engine := &stubEngine{}
	a := NewAdapter(engine, Config{MaxImageDimension: 64}, nil)

	if _, _, err := a.Recognize(context.Background(), testPNG(t, 200, 100)); err != nil {
		t.Fatal(err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(engine.lastIn))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Errorf("engine received %dx%d, want 64x32", cfg.Width, cfg.Height)
	}
}

func TestAdapterLeavesSmallImagesUntouched(t *testing.T) {
	engine := &stubEngine{}
	a := NewAdapter(engine, Config{MaxImageDimension: 1500}, nil)

	in := testPNG(t, 20, 30)
	if _, _, err := a.Recognize(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(engine.lastIn, in) {
		t.Error("small image was re-encoded; expected original bytes")
	}
}
