// Package pdfdoc wraps the poppler command-line tools as the PDF capability:
// native page text, embedded raster images, page rasterization and first-page
// thumbnails, all operating on in-memory PDF bytes.
package pdfdoc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/homedocs/doc-processor/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Pdfimages string // binary name or absolute path; if empty -> "pdfimages"
	Pdfinfo   string // binary name or absolute path; if empty -> "pdfinfo"
}

// Document is the native extraction output of a PDF: the concatenated text of
// all non-empty pages, the page count, and the embedded raster image payloads
// in page order.
type Document struct {
	Text      string
	PageCount int
	Images    [][]byte
}

// Thumbnail is a rendered first page scaled to fit a bounding square.
type Thumbnail struct {
	PNG    []byte
	Width  int
	Height int
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdfimages == "" {
		cfg.Pdfimages = "pdfimages"
	}
	if cfg.Pdfinfo == "" {
		cfg.Pdfinfo = "pdfinfo"
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract pulls native text and embedded images out of a PDF.
// Pages with no text contribute nothing; the rest are joined by a blank line.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (Document, error) {
	path, cleanup, err := stageFile(pdf)
	if err != nil {
		return Document{}, err
	}
	defer cleanup()

	pages, err := e.pageCount(ctx, path)
	if err != nil {
		return Document{}, err
	}

	// pdftotext -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return Document{}, common.NewAppError(common.CodeDocumentParse,
			fmt.Sprintf("pdftotext failed: %s", truncate(string(errb), 512)), err)
	}

	// A form-feed \f separates pages in pdftotext output.
	var parts []string
	for _, page := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(page) != "" {
			parts = append(parts, strings.TrimRight(page, "\n"))
		}
	}

	images, err := e.embeddedImages(ctx, path)
	if err != nil {
		// Embedded-image extraction is best effort; native text stands alone.
		e.logger.Warn("embedded image extraction failed", "error", err)
		images = nil
	}

	return Document{
		Text:      strings.Join(parts, "\n\n"),
		PageCount: pages,
		Images:    images,
	}, nil
}

// RenderPages rasterizes every page to PNG at the given DPI, in page order.
func (e *Extractor) RenderPages(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	if dpi <= 0 {
		dpi = 200
	}
	path, cleanup, err := stageFile(pdf)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	tmpDir, err := os.MkdirTemp("", "dp-pp-*")
	if err != nil {
		return nil, err
	}
	defer removeAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(dpi), "-png", path, prefix)
	if err != nil {
		return nil, common.NewAppError(common.CodeDocumentParse,
			fmt.Sprintf("pdftoppm failed: %s", truncate(string(errb), 512)), err)
	}

	// pdftoppm zero-pads page numbers, so a lexical sort is page order.
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, common.Errorf(common.CodeDocumentParse, "pdftoppm produced no pages")
	}
	return readFiles(matches)
}

// Thumbnail renders page 1 scaled to fit within maxSize on both axes.
func (e *Extractor) Thumbnail(ctx context.Context, pdf []byte, maxSize int) (Thumbnail, error) {
	if maxSize <= 0 {
		maxSize = 150
	}
	path, cleanup, err := stageFile(pdf)
	if err != nil {
		return Thumbnail{}, err
	}
	defer cleanup()

	pages, err := e.pageCount(ctx, path)
	if err != nil {
		return Thumbnail{}, err
	}
	if pages == 0 {
		return Thumbnail{}, common.Errorf(common.CodeEmptyDocument, "PDF has no pages")
	}

	tmpDir, err := os.MkdirTemp("", "dp-th-*")
	if err != nil {
		return Thumbnail{}, err
	}
	defer removeAll(tmpDir)

	prefix := filepath.Join(tmpDir, "thumb")
	// pdftoppm -png -f 1 -l 1 -scale-to <n> <in.pdf> <tmp/thumb>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-png", "-f", "1", "-l", "1", "-scale-to", strconv.Itoa(maxSize), path, prefix)
	if err != nil {
		return Thumbnail{}, common.NewAppError(common.CodeDocumentParse,
			fmt.Sprintf("thumbnail render failed: %s", truncate(string(errb), 512)), err)
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return Thumbnail{}, common.Errorf(common.CodeDocumentParse, "thumbnail render produced no output")
	}
	sort.Strings(matches)
	png, err := os.ReadFile(matches[0])
	if err != nil {
		return Thumbnail{}, err
	}
	w, h, err := pngDimensions(png)
	if err != nil {
		return Thumbnail{}, err
	}
	return Thumbnail{PNG: png, Width: w, Height: h}, nil
}

// pageCount parses the "Pages:" line of pdfinfo output. A pdfinfo failure
// means the document itself is unreadable.
func (e *Extractor) pageCount(ctx context.Context, path string) (int, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdfinfo, path)
	if err != nil {
		return 0, common.NewAppError(common.CodeDocumentParse,
			fmt.Sprintf("not a readable PDF: %s", truncate(string(errb), 512)), err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			break
		}
		return n, nil
	}
	return 0, common.Errorf(common.CodeDocumentParse, "pdfinfo reported no page count")
}

// embeddedImages extracts every embedded raster image as PNG, in page order.
func (e *Extractor) embeddedImages(ctx context.Context, path string) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "dp-im-*")
	if err != nil {
		return nil, err
	}
	defer removeAll(tmpDir)

	prefix := filepath.Join(tmpDir, "img")
	// pdfimages -png <in.pdf> <tmp/img>  -> img-000.png, img-001.png, ...
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdfimages, "-png", path, prefix); err != nil {
		return nil, fmt.Errorf("pdfimages: %s: %w", truncate(string(errb), 512), err)
	}

	matches, _ := filepath.Glob(prefix + "-*")
	sort.Strings(matches)
	return readFiles(matches)
}

func readFiles(paths []string) ([][]byte, error) {
	out := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
