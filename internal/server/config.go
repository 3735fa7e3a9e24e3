package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/ironsheep/annotated-diagram-mcp/internal/ocr"
	"github.com/ironsheep/annotated-diagram-mcp/internal/segment"
)

// Environment variables read by LoadConfig.
const (
	EnvLogLevel  = "DIAGRAM_MCP_LOG_LEVEL"
	EnvDB        = "DIAGRAM_MCP_DB"
	EnvSegmenter = "DIAGRAM_MCP_SEGMENTER"
	EnvOCRLang   = "DIAGRAM_MCP_OCR_LANG"
	EnvTessdata  = "DIAGRAM_MCP_TESSDATA"
	EnvListen    = "DIAGRAM_MCP_LISTEN"
)

// Config holds the server settings. The zero value is usable: no store,
// the automatic segmenter, English OCR and no live endpoint.
type Config struct {
	// LogLevel "debug" enables request logging.
	LogLevel string

	// DBPath is the SQLite file for saved annotation sets. Empty disables
	// the store tools and editor saving to the store.
	DBPath string

	// Segmenter names the magic-wand backend, see segment.New.
	Segmenter string

	OCRLanguage    string
	TessdataPrefix string

	// Listen is the address of the live editing endpoint, e.g. ":8080".
	// Empty disables it.
	Listen string
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) (Config, error) {
	cfg := Config{
		LogLevel:       strings.ToLower(strings.TrimSpace(getenv(EnvLogLevel))),
		DBPath:         getenv(EnvDB),
		Segmenter:      strings.ToLower(strings.TrimSpace(getenv(EnvSegmenter))),
		OCRLanguage:    getenv(EnvOCRLang),
		TessdataPrefix: getenv(EnvTessdata),
		Listen:         getenv(EnvListen),
	}
	if cfg.OCRLanguage == "" {
		cfg.OCRLanguage = ocr.DefaultLanguage
	}
	if _, err := segment.New(cfg.Segmenter); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", EnvSegmenter, err)
	}
	return cfg, nil
}

// Debug reports whether debug logging is enabled.
func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}
