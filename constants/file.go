package constants

import "strings"

// Formats for the closed dispatch at the processing entry point.
const (
	PDF   = "PDF"
	IMAGE = "IMAGE"
)

// imageExtensions holds the supported raster image extensions.
var imageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tiff": {},
	"tif":  {},
	"bmp":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized extension to a format tag.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	if ext == "pdf" {
		return PDF
	}
	if _, ok := imageExtensions[ext]; ok {
		return IMAGE
	}
	return ""
}
