package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Extraction ExtractionConfig
	OCR        OCRConfig
	PDF        PDFConfig
	Face       FaceConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Addr            string
	Version         string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// ExtractionConfig holds the decision-cascade parameters.
type ExtractionConfig struct {
	MaxFileSizeBytes    int64
	MaxImagesToOCR      int
	MinImageSizeForOCR  int
	NativeTextThreshold int
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Languages         []string
	MaxImageDimension int
	DPI               int
}

// PDFConfig holds the poppler binary overrides.
type PDFConfig struct {
	Pdftotext string
	Pdftoppm  string
	Pdfimages string
	Pdfinfo   string
}

// FaceConfig holds face-recognition configuration.
type FaceConfig struct {
	ModelsDir             string
	CachePath             string // empty -> in-memory cache
	DefaultMatchThreshold float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("ADDR", ":8000"),
			Version:         getEnv("COMMIT_SHA", "dev"),
			LogLevel:        getEnv("LOG_LEVEL", "INFO"),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Extraction: ExtractionConfig{
			MaxFileSizeBytes:    getEnvAsInt64("MAX_FILE_SIZE_BYTES", 10*1024*1024),
			MaxImagesToOCR:      getEnvAsInt("MAX_IMAGES_TO_OCR", 3),
			MinImageSizeForOCR:  getEnvAsInt("MIN_IMAGE_SIZE_FOR_OCR", 10000),
			NativeTextThreshold: getEnvAsInt("NATIVE_TEXT_THRESHOLD", 500),
		},
		OCR: OCRConfig{
			Languages:         getEnvAsList("OCR_LANGUAGES", []string{"eng"}),
			MaxImageDimension: getEnvAsInt("OCR_MAX_IMAGE_DIMENSION", 1500),
			DPI:               getEnvAsInt("OCR_DPI", 200),
		},
		PDF: PDFConfig{
			Pdftotext: getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdftoppm:  getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdfimages: getEnv("PDFIMAGES_BIN", "pdfimages"),
			Pdfinfo:   getEnv("PDFINFO_BIN", "pdfinfo"),
		},
		Face: FaceConfig{
			ModelsDir:             getEnv("FACE_MODELS_DIR", "models"),
			CachePath:             getEnv("FACE_CACHE_PATH", ""),
			DefaultMatchThreshold: getEnvAsFloat64("DEFAULT_FACE_MATCH_THRESHOLD", 0.4),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError(CodeInvalidInput, "ADDR is required", nil)
	}
	if c.Extraction.MaxFileSizeBytes <= 0 {
		return NewAppError(CodeInvalidInput, "MAX_FILE_SIZE_BYTES must be positive", nil)
	}
	if c.Extraction.MaxImagesToOCR < 0 {
		return NewAppError(CodeInvalidInput, "MAX_IMAGES_TO_OCR must not be negative", nil)
	}
	if c.OCR.MaxImageDimension <= 0 {
		return NewAppError(CodeInvalidInput, "OCR_MAX_IMAGE_DIMENSION must be positive", nil)
	}
	if c.Face.DefaultMatchThreshold < 0 {
		return NewAppError(CodeInvalidInput, "DEFAULT_FACE_MATCH_THRESHOLD must not be negative", nil)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
