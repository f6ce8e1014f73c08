package extract

// Method identifies which extraction strategy produced a result.
type Method string

const (
	MethodNative    Method = "native"
	MethodOCR       Method = "ocr"
	MethodNativeOCR Method = "native+ocr"
)

// Result is the outcome of processing one document.
// Confidence is set if and only if Method != MethodNative.
type Result struct {
	Text       string   `json:"text"`
	PageCount  int      `json:"page_count"`
	Method     Method   `json:"method"`
	Confidence *float64 `json:"confidence"`
}
