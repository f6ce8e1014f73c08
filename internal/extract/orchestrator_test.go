package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/homedocs/doc-processor/internal/common"
	"github.com/homedocs/doc-processor/internal/pdfdoc"
)

type stubPDF struct {
	doc         pdfdoc.Document
	extractErr  error
	pages       [][]byte
	renderErr   error
	renderCalls int
}

func (s *stubPDF) Extract(ctx context.Context, pdf []byte) (pdfdoc.Document, error) {
	return s.doc, s.extractErr
}

func (s *stubPDF) RenderPages(ctx context.Context, pdf []byte, dpi int) ([][]byte, error) {
	s.renderCalls++
	return s.pages, s.renderErr
}

type stubOCR struct {
	recognize func(image []byte) (string, float64, error)
	calls     [][]byte
}

func (s *stubOCR) Recognize(ctx context.Context, image []byte) (string, float64, error) {
	s.calls = append(s.calls, image)
	return s.recognize(image)
}

func newTestOrchestrator(pdf *stubPDF, o *stubOCR) *Orchestrator {
	return NewOrchestrator(pdf, o, Config{
		MaxFileSizeBytes:    1 << 20,
		MaxImagesToOCR:      3,
		MinImageSizeForOCR:  100,
		NativeTextThreshold: 500,
		DPI:                 200,
	}, nil)
}

func bigImage(marker byte) []byte {
	return bytes.Repeat([]byte{marker}, 200)
}

func TestProcessRejectsOversizeInput(t *testing.T) {
	o := newTestOrchestrator(&stubPDF{}, &stubOCR{})
	_, err := o.Process(context.Background(), make([]byte, 2<<20), "big.pdf")
	if !common.IsCode(err, common.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestProcessRejectsUnsupportedExtension(t *testing.T) {
	o := newTestOrchestrator(&stubPDF{}, &stubOCR{})
	_, err := o.Process(context.Background(), []byte("x"), "notes.docx")
	if !common.IsCode(err, common.CodeInvalidInput) {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestProcessNativeTextShortCircuitsOCR(t *testing.T) {
	native := strings.Repeat("lorem ipsum ", 50) // > 500 chars trimmed
	pdf := &stubPDF{doc: pdfdoc.Document{Text: native, PageCount: 1, Images: [][]byte{bigImage(1)}}}
	ocr := &stubOCR{recognize: func([]byte) (string, float64, error) {
		t.Fatal("OCR must not run when native text is long enough")
		return "", 0, nil
	}}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodNative {
		t.Errorf("method = %q, want native", res.Method)
	}
	if res.Confidence != nil {
		t.Errorf("confidence = %v, want nil", *res.Confidence)
	}
	if res.Text != native {
		t.Errorf("text mutated: got %d chars, want %d", len(res.Text), len(native))
	}
	if res.PageCount != 1 {
		t.Errorf("page count = %d, want 1", res.PageCount)
	}
}

func TestProcessMergesEmbeddedImageText(t *testing.T) {
	pdf := &stubPDF{doc: pdfdoc.Document{
		Text:      "short native",
		PageCount: 2,
		Images:    [][]byte{bigImage(1), bigImage(2)},
	}}
	conf := map[byte]float64{1: 0.5, 2: 1.0}
	ocr := &stubOCR{recognize: func(img []byte) (string, float64, error) {
		return "text-" + string('0'+img[0]), conf[img[0]], nil
	}}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodNativeOCR {
		t.Fatalf("method = %q, want native+ocr", res.Method)
	}
	want := "short native\n\ntext-1\n\ntext-2"
	if res.Text != want {
		t.Errorf("text = %q, want %q", res.Text, want)
	}
	if res.Confidence == nil || *res.Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", res.Confidence)
	}
}

func TestProcessOmitsSeparatorWhenNativeTextEmpty(t *testing.T) {
	pdf := &stubPDF{doc: pdfdoc.Document{Text: "  \n ", PageCount: 1, Images: [][]byte{bigImage(1)}}}
	ocr := &stubOCR{recognize: func([]byte) (string, float64, error) { return "only ocr", 0.9, nil }}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "only ocr" {
		t.Errorf("text = %q, want %q", res.Text, "only ocr")
	}
}

func TestProcessSkipsSmallImagesAndCapsCount(t *testing.T) {
	small := bytes.Repeat([]byte{9}, 50)
	images := [][]byte{small, bigImage(1), bigImage(2), bigImage(3), bigImage(4)}
	pdf := &stubPDF{doc: pdfdoc.Document{Text: "", PageCount: 1, Images: images}}
	ocr := &stubOCR{recognize: func(img []byte) (string, float64, error) { return "t", 0.5, nil }}

	if _, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "doc.pdf"); err != nil {
		t.Fatal(err)
	}
	// 3 = MaxImagesToOCR; the 50-byte image must never reach the adapter.
	if len(ocr.calls) != 3 {
		t.Fatalf("ocr called %d times, want 3", len(ocr.calls))
	}
	for _, call := range ocr.calls {
		if len(call) < 100 {
			t.Error("undersized image reached the OCR adapter")
		}
	}
}

func TestProcessTransientFailureSkipsImage(t *testing.T) {
	pdf := &stubPDF{doc: pdfdoc.Document{Text: "", PageCount: 1, Images: [][]byte{bigImage(1), bigImage(2)}}}
	ocr := &stubOCR{recognize: func(img []byte) (string, float64, error) {
		if img[0] == 1 {
			return "", 0, common.NewAppError(common.CodeTransientItem, "ocr failed", errors.New("boom"))
		}
		return "survivor", 0.5, nil
	}}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodNativeOCR || res.Text != "survivor" {
		t.Errorf("got method=%q text=%q, want native+ocr/survivor", res.Method, res.Text)
	}
}

func TestProcessEngineFatalAborts(t *testing.T) {
	pdf := &stubPDF{doc: pdfdoc.Document{Text: "", PageCount: 1, Images: [][]byte{bigImage(1), bigImage(2)}}}
	ocr := &stubOCR{recognize: func([]byte) (string, float64, error) {
		return "", 0, common.NewAppError(common.CodeEngineFatal, "ocr engine unavailable", nil)
	}}

	_, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "doc.pdf")
	if !common.IsCode(err, common.CodeEngineFatal) {
		t.Fatalf("expected ENGINE_FATAL, got %v", err)
	}
	if len(ocr.calls) != 1 {
		t.Errorf("ocr called %d times after fatal error, want 1", len(ocr.calls))
	}
}

func TestProcessFallsBackToFullPageOCR(t *testing.T) {
	// No native text, no embedded images: the cascade rasterizes every page.
	pdf := &stubPDF{
		doc:   pdfdoc.Document{Text: "", PageCount: 2},
		pages: [][]byte{bigImage(1), bigImage(2), bigImage(3)},
	}
	ocr := &stubOCR{recognize: func(img []byte) (string, float64, error) {
		if img[0] == 2 {
			return "   ", 0.1, nil // whitespace-only page contributes nothing
		}
		return "page-" + string('0'+img[0]), 0.5, nil
	}}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "scan.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if pdf.renderCalls != 1 {
		t.Fatalf("render called %d times, want 1", pdf.renderCalls)
	}
	if res.Method != MethodOCR {
		t.Errorf("method = %q, want ocr", res.Method)
	}
	if res.Text != "page-1\n\npage-3" {
		t.Errorf("text = %q", res.Text)
	}
	if res.PageCount != 3 {
		t.Errorf("page count = %d, want 3", res.PageCount)
	}
	if res.Confidence == nil || *res.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", res.Confidence)
	}
}

func TestProcessFallbackWithNoUsableTextReportsZeroConfidence(t *testing.T) {
	pdf := &stubPDF{doc: pdfdoc.Document{Text: "", PageCount: 1}, pages: [][]byte{bigImage(1)}}
	ocr := &stubOCR{recognize: func([]byte) (string, float64, error) { return "", 0, nil }}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("%PDF"), "scan.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodOCR || res.Text != "" {
		t.Errorf("got method=%q text=%q", res.Method, res.Text)
	}
	if res.Confidence == nil || *res.Confidence != 0.0 {
		t.Errorf("confidence = %v, want 0.0", res.Confidence)
	}
}

func TestProcessImageFileSingleStage(t *testing.T) {
	pdf := &stubPDF{}
	ocr := &stubOCR{recognize: func([]byte) (string, float64, error) { return "scanned text", 0.83, nil }}

	res, err := newTestOrchestrator(pdf, ocr).Process(context.Background(), []byte("fakepng"), "scan.png")
	if err != nil {
		t.Fatal(err)
	}
	if res.Method != MethodOCR {
		t.Errorf("method = %q, want ocr", res.Method)
	}
	if res.PageCount != 1 {
		t.Errorf("page count = %d, want 1", res.PageCount)
	}
	if res.Confidence == nil || *res.Confidence != 0.83 {
		t.Errorf("confidence = %v, want 0.83", res.Confidence)
	}
}

func TestProcessPropagatesParseError(t *testing.T) {
	pdf := &stubPDF{extractErr: common.Errorf(common.CodeDocumentParse, "not a readable PDF")}
	_, err := newTestOrchestrator(pdf, &stubOCR{}).Process(context.Background(), []byte("junk"), "bad.pdf")
	if !common.IsCode(err, common.CodeDocumentParse) {
		t.Fatalf("expected DOCUMENT_PARSE, got %v", err)
	}
}
