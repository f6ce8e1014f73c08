package pdfdoc

import (
	"bytes"
	"fmt"
	"image/png"
	"log/slog"
	"os"
)

// stageFile writes in-memory PDF bytes to a temp file for the poppler tools,
// which only take paths. Call cleanup() to remove it.
func stageFile(data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", "dp-doc-*.pdf")
	if err != nil {
		return "", nil, err
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temp file", "path", path, "error", err)
		}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

func removeAll(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove temp dir", "path", dir, "error", err)
	}
}

// pngDimensions reads width and height from a PNG header without decoding
// pixel data.
func pngDimensions(data []byte) (int, int, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode thumbnail: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
