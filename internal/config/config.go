package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Docs     DocsConfig     `toml:"docs"`
	Cache    CacheConfig    `toml:"cache"`
	Extract  ExtractConfig  `toml:"extract"`
	OCR      OCRConfig      `toml:"ocr"`
	Search   SearchConfig   `toml:"search"`
	Audit    AuditConfig    `toml:"audit"`
	Log      LogConfig      `toml:"log"`
	Observer ObserverConfig `toml:"observer"`
}

type DocsConfig struct {
	Root string `toml:"root"`
}

type CacheConfig struct {
	Dir     string `toml:"dir"`
	Enabled bool   `toml:"enabled"`
}

type ExtractConfig struct {
	MinTextChars int  `toml:"min_text_chars"`
	Tables       bool `toml:"tables"`
}

type OCRConfig struct {
	Enabled  bool   `toml:"enabled"`
	Language string `toml:"language"`
	DPI      int    `toml:"dpi"`
}

type SearchConfig struct {
	ContextChars int `toml:"context_chars"`
	Workers      int `toml:"workers"`
}

type AuditConfig struct {
	// Driver is one of "jsonl", "sqlite", "postgres" or "none".
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
	DSN    string `toml:"dsn"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Docs:    DocsConfig{Root: "docs"},
		Cache:   CacheConfig{Dir: "data/transcriptions", Enabled: true},
		Extract: ExtractConfig{MinTextChars: 50, Tables: true},
		OCR:     OCRConfig{Enabled: true, Language: "por", DPI: 300},
		Search:  SearchConfig{ContextChars: 100, Workers: 4},
		Audit:   AuditConfig{Driver: "jsonl", Path: "logs/audit.jsonl"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "docex.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("DOCS_DIR"); v != "" {
		cfg.Docs.Root = v
	}
	if v := os.Getenv("TRANSCRIPTIONS_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v, ok := envBool("DOCEX_CACHE_ENABLED"); ok {
		cfg.Cache.Enabled = v
	}
	if v, ok := envInt("DOCEX_MIN_TEXT_CHARS"); ok {
		cfg.Extract.MinTextChars = v
	}
	if v, ok := envBool("DOCEX_OCR_ENABLED"); ok {
		cfg.OCR.Enabled = v
	}
	if v := os.Getenv("DOCEX_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
	if v, ok := envInt("DOCEX_OCR_DPI"); ok {
		cfg.OCR.DPI = v
	}
	if v := os.Getenv("DOCEX_AUDIT_DRIVER"); v != "" {
		cfg.Audit.Driver = v
	}
	if v := os.Getenv("AUDIT_LOG"); v != "" {
		cfg.Audit.Path = v
	}
	if v := os.Getenv("DOCEX_AUDIT_DSN"); v != "" {
		cfg.Audit.DSN = v
	}
	if v := os.Getenv("DOCEX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v, ok := envBool("DOCEX_OBSERVER_ENABLED"); ok {
		cfg.Observer.Enabled = v
	}

	// Out-of-range values fall back to defaults.
	def := Default()
	if cfg.Extract.MinTextChars < 0 {
		cfg.Extract.MinTextChars = def.Extract.MinTextChars
	}
	if cfg.OCR.DPI <= 0 {
		cfg.OCR.DPI = def.OCR.DPI
	}
	if cfg.Search.ContextChars < 0 {
		cfg.Search.ContextChars = def.Search.ContextChars
	}
	if cfg.Search.Workers <= 0 {
		cfg.Search.Workers = def.Search.Workers
	}

	return cfg
}

// Languages splits the OCR language setting on "+" or ",", the separators
// Tesseract users write ("por+eng").
func (c OCRConfig) Languages() []string {
	var out []string
	for _, l := range strings.FieldsFunc(c.Language, func(r rune) bool { return r == '+' || r == ',' }) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// SlogLevel parses the configured level. Unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
