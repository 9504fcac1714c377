package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lmercier/docextract/internal/common"
)

// Config holds all application configuration. It is built once at process
// start and passed into every component constructor; there is no global
// instance.
type Config struct {
	OCR        OCRConfig        `yaml:"ocr"`
	PDF        PDFConfig        `yaml:"pdf"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	Backend    BackendConfig    `yaml:"backend"`
	Store      StoreConfig      `yaml:"store"`
}

// OCRConfig holds OCR engine configuration.
type OCRConfig struct {
	Tesseract   string `yaml:"tesseract"`    // binary name or absolute path; if empty -> "tesseract"
	Language    string `yaml:"language"`     // tesseract language pack, e.g. "fra", "eng"
	PSM         int    `yaml:"psm"`          // page segmentation mode; 6 suits a uniform text block
	OEM         int    `yaml:"oem"`          // engine mode; 0 keeps tesseract's default
	TessdataDir string `yaml:"tessdata_dir"`
}

// PDFConfig holds PDF rasterization configuration.
type PDFConfig struct {
	Pdftoppm string `yaml:"pdftoppm"` // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    `yaml:"dpi"`      // rasterization resolution, default 300
	MaxPages int    `yaml:"max_pages"`
}

// PreprocessConfig toggles the individual image-enhancement stages.
type PreprocessConfig struct {
	Deskew          bool `yaml:"deskew"`
	Denoise         bool `yaml:"denoise"`
	EnhanceContrast bool `yaml:"enhance_contrast"`
	Binarize        bool `yaml:"binarize"`
}

// BackendConfig holds the generation backend configuration.
type BackendConfig struct {
	UseSim      bool          `yaml:"use_sim"` // force the simulation backend
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// StoreConfig holds the results store configuration.
type StoreConfig struct {
	Path string `yaml:"path"` // sqlite file path; ":memory:" for ephemeral
}

// Load builds configuration from an optional YAML file plus environment
// overrides. An empty path skips the file and uses env/defaults only.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("read config file %q", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, common.NewAppError("CONFIG_ERROR", "parse config file", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		OCR: OCRConfig{
			Tesseract: "tesseract",
			Language:  "fra",
			PSM:       6,
		},
		PDF: PDFConfig{
			Pdftoppm: "pdftoppm",
			DPI:      300,
		},
		Preprocess: PreprocessConfig{
			Deskew:          true,
			Denoise:         true,
			EnhanceContrast: true,
			Binarize:        true,
		},
		Backend: BackendConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.0,
			Timeout:     45 * time.Second,
		},
		Store: StoreConfig{
			Path: "docextract.db",
		},
	}
}

func applyEnv(cfg *Config) {
	cfg.OCR.Tesseract = getEnv("TESSERACT_CMD", cfg.OCR.Tesseract)
	cfg.OCR.Language = getEnv("OCR_LANGUAGE", cfg.OCR.Language)
	cfg.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", cfg.OCR.TessdataDir)
	cfg.PDF.Pdftoppm = getEnv("PDFTOPPM_CMD", cfg.PDF.Pdftoppm)
	cfg.PDF.DPI = getEnvAsInt("PDF_DPI", cfg.PDF.DPI)
	cfg.PDF.MaxPages = getEnvAsInt("PDF_MAX_PAGES", cfg.PDF.MaxPages)
	cfg.Backend.UseSim = getEnvAsBool("BACKEND_USE_SIM", cfg.Backend.UseSim)
	cfg.Backend.BaseURL = getEnv("OPENAI_BASE_URL", cfg.Backend.BaseURL)
	cfg.Backend.Model = getEnv("OPENAI_MODEL", cfg.Backend.Model)
	cfg.Backend.APIKey = getEnv("OPENAI_API_KEY", cfg.Backend.APIKey)
	cfg.Backend.Timeout = getEnvAsDuration("OPENAI_TIMEOUT", cfg.Backend.Timeout)
	cfg.Store.Path = getEnv("STORE_PATH", cfg.Store.Path)
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.PDF.DPI <= 0 {
		return common.NewAppError("CONFIG_ERROR", "pdf.dpi must be positive", common.ErrInvalidInput)
	}
	if c.OCR.Language == "" {
		return common.NewAppError("CONFIG_ERROR", "ocr.language is required", common.ErrInvalidInput)
	}
	// A missing API key is not a config error: the pipeline substitutes the
	// simulation backend at construction.
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
