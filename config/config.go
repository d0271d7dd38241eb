// Package config loads service settings from the environment and the page
// geometry from an optional YAML file.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/docbuilder/layout"
)

type Config struct {
	Port string

	// Export backend
	ExportBaseURL string
	CSRFHeader    string
	ExportTimeout time.Duration

	// Draft store
	DBPath string

	// Notices
	NoticeHold time.Duration
	FlashHold  time.Duration

	LogLevel slog.Level

	// GeometryFile is read when set; otherwise the default geometry applies.
	GeometryFile string
	Geometry     layout.Geometry
}

// Load reads DOCBUILDER_* variables and, when DOCBUILDER_CONFIG names a file,
// the geometry from it.
func Load() (Config, error) {
	cfg := Config{
		Port: envOr("DOCBUILDER_PORT", "8090"),

		ExportBaseURL: os.Getenv("DOCBUILDER_EXPORT_URL"),
		CSRFHeader:    envOr("DOCBUILDER_CSRF_HEADER", "X-CSRF-TOKEN"),
		ExportTimeout: envDuration("DOCBUILDER_EXPORT_TIMEOUT", 30*time.Second),

		DBPath: envOr("DOCBUILDER_DB", "docbuilder.db"),

		NoticeHold: envDuration("DOCBUILDER_NOTICE_HOLD", layout.DefaultNoticeHold),
		FlashHold:  envDuration("DOCBUILDER_FLASH_HOLD", layout.DefaultFlashHold),

		LogLevel: envLevel("DOCBUILDER_LOG_LEVEL", slog.LevelInfo),

		GeometryFile: os.Getenv("DOCBUILDER_CONFIG"),
		Geometry:     layout.DefaultGeometry(),
	}

	if cfg.ExportTimeout <= 0 {
		cfg.ExportTimeout = 30 * time.Second
	}
	if cfg.NoticeHold <= 0 {
		cfg.NoticeHold = layout.DefaultNoticeHold
	}
	if cfg.FlashHold <= 0 {
		cfg.FlashHold = layout.DefaultFlashHold
	}

	if cfg.GeometryFile != "" {
		geo, err := LoadGeometryFile(cfg.GeometryFile)
		if err != nil {
			return cfg, err
		}
		cfg.Geometry = geo
	}
	if v := envInt("DOCBUILDER_INITIAL_PAGES", 0); v > 0 {
		cfg.Geometry.InitialPages = v
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("DOCBUILDER_PORT is required")
	}
	if c.ExportBaseURL != "" {
		u, err := url.Parse(c.ExportBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("DOCBUILDER_EXPORT_URL %q is not an absolute url", c.ExportBaseURL)
		}
	}
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(v))); err == nil {
			return l
		}
	}
	return fallback
}

// GeometryFile is the YAML form of layout.Geometry. Lengths carry their unit,
// e.g. "210mm" or "806px".
type GeometryFile struct {
	MaxLinesPortrait  int  `yaml:"max_lines_portrait"`
	MaxLinesLandscape int  `yaml:"max_lines_landscape"`
	FillerLines       *int `yaml:"filler_lines"`
	MaxColumns        int  `yaml:"max_columns"`
	InitialPages      int  `yaml:"initial_pages"`
	DefaultFontSize   int  `yaml:"default_font_size"`
	TabWidth          *int `yaml:"tab_width"`

	PageWidthPortrait  string `yaml:"page_width_portrait"`
	PageWidthLandscape string `yaml:"page_width_landscape"`
	PagePadding        string `yaml:"page_padding"`
	ColumnGap          string `yaml:"column_gap"`
	LinePadding        string `yaml:"line_padding"`
	LineBorder         string `yaml:"line_border"`
}

func (f *GeometryFile) defaults() {
	def := layout.DefaultGeometry()
	if f.MaxLinesPortrait <= 0 {
		f.MaxLinesPortrait = def.MaxLinesPortrait
	}
	if f.MaxLinesLandscape <= 0 {
		f.MaxLinesLandscape = def.MaxLinesLandscape
	}
	if f.FillerLines == nil {
		f.FillerLines = &def.FillerLines
	}
	if f.MaxColumns <= 0 {
		f.MaxColumns = def.MaxColumns
	}
	if f.InitialPages <= 0 {
		f.InitialPages = def.InitialPages
	}
	if f.DefaultFontSize <= 0 {
		f.DefaultFontSize = def.DefaultFontSize
	}
	if f.TabWidth == nil {
		f.TabWidth = &def.TabWidth
	}
	if f.PageWidthPortrait == "" {
		f.PageWidthPortrait = def.PageWidthPortrait.String()
	}
	if f.PageWidthLandscape == "" {
		f.PageWidthLandscape = def.PageWidthLandscape.String()
	}
	if f.PagePadding == "" {
		f.PagePadding = def.PagePadding.String()
	}
	if f.ColumnGap == "" {
		f.ColumnGap = def.ColumnGap.String()
	}
	if f.LinePadding == "" {
		f.LinePadding = def.LinePadding.String()
	}
	if f.LineBorder == "" {
		f.LineBorder = def.LineBorder.String()
	}
}

// Geometry converts the file form, filling unset fields with the defaults.
func (f GeometryFile) Geometry() (layout.Geometry, error) {
	f.defaults()
	g := layout.Geometry{
		MaxLinesPortrait:  f.MaxLinesPortrait,
		MaxLinesLandscape: f.MaxLinesLandscape,
		FillerLines:       *f.FillerLines,
		MaxColumns:        f.MaxColumns,
		InitialPages:      f.InitialPages,
		DefaultFontSize:   f.DefaultFontSize,
		TabWidth:          *f.TabWidth,
	}
	lengths := []struct {
		name string
		raw  string
		dst  *layout.Length
	}{
		{"page_width_portrait", f.PageWidthPortrait, &g.PageWidthPortrait},
		{"page_width_landscape", f.PageWidthLandscape, &g.PageWidthLandscape},
		{"page_padding", f.PagePadding, &g.PagePadding},
		{"column_gap", f.ColumnGap, &g.ColumnGap},
		{"line_padding", f.LinePadding, &g.LinePadding},
		{"line_border", f.LineBorder, &g.LineBorder},
	}
	for _, l := range lengths {
		v, err := layout.ParseLength(l.raw)
		if err != nil {
			return layout.Geometry{}, fmt.Errorf("config: %s: %w", l.name, err)
		}
		*l.dst = v
	}
	return g, nil
}

// LoadGeometryFile reads a YAML geometry file and validates the result.
func LoadGeometryFile(path string) (layout.Geometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return layout.Geometry{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f GeometryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return layout.Geometry{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	g, err := f.Geometry()
	if err != nil {
		return layout.Geometry{}, err
	}
	if err := g.Validate(); err != nil {
		return layout.Geometry{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return g, nil
}
