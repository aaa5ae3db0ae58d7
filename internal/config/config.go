package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"buffwatch/internal/domain"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

const (
	defaultServiceName   = "buffwatch"
	defaultCharacter     = "default"
	defaultHTTPListen    = "127.0.0.1:8686"
	defaultHealthPath    = "/healthz"
	defaultReadyPath     = "/readyz"
	defaultFramePath     = "/frames"
	defaultMaxBodyBytes  = 1 << 20
	defaultNATSURL       = "nats://127.0.0.1:4222"
	defaultNATSBucket    = "buffwatch"
	defaultAutoSuppress  = 60
	defaultSuppressDelay = 5

	// DefaultRenderTemplate formats one console surface line.
	DefaultRenderTemplate = `{{ .Label }}{{ if .Count }} x{{ .Count }}{{ end }} {{ .Message }}{{ if .Entity }} ({{ .Entity }}){{ end }}`

	// StoreBackendMemory keeps blobs in process memory.
	StoreBackendMemory = "memory"
	// StoreBackendFile keeps one JSON file per blob in a directory.
	StoreBackendFile = "file"
	// StoreBackendNATS keeps blobs in a JetStream KV bucket.
	StoreBackendNATS = "nats"

	// FeedSourceStdin reads frames from standard input.
	FeedSourceStdin = "stdin"
)

// Config holds process settings and default engine settings.
// Params: TOML sections from file or merged directory snapshot.
// Returns: validated runtime configuration.
type Config struct {
	Service  ServiceConfig `toml:"service"`
	Store    StoreConfig   `toml:"store"`
	Log      LogConfig     `toml:"log"`
	HTTP     HTTPConfig    `toml:"http"`
	Feed     FeedConfig    `toml:"feed"`
	Defaults Settings      `toml:"defaults"`
}

// ServiceConfig contains process-level settings.
// Params: service name and character scope for persisted blobs.
// Returns: service identity.
type ServiceConfig struct {
	Name      string `toml:"name"`
	Character string `toml:"character"`
}

// StoreConfig selects persistence backend for per-character blobs.
// Params: backend name plus file or NATS settings.
// Returns: store construction options.
type StoreConfig struct {
	Backend           string   `toml:"backend"`
	Dir               string   `toml:"dir"`
	NATSURL           []string `toml:"nats_url"`
	Bucket            string   `toml:"bucket"`
	AllowCreateBucket bool     `toml:"allow_create_bucket"`
}

// HTTPConfig configures local control and status endpoint.
// Params: enable flag, listen address, health paths, frame path, and body limit.
// Returns: HTTP server behavior.
type HTTPConfig struct {
	Enabled      bool   `toml:"enabled"`
	Listen       string `toml:"listen"`
	HealthPath   string `toml:"health_path"`
	ReadyPath    string `toml:"ready_path"`
	FramePath    string `toml:"frame_path"`
	MaxBodyBytes int64  `toml:"max_body_bytes"`
}

// FeedConfig configures frame source and console rendering.
// Params: source ("stdin", file path, or empty for HTTP-only), render flag, line template.
// Returns: feed loop behavior.
type FeedConfig struct {
	Source         string `toml:"source"`
	Render         bool   `toml:"render"`
	RenderTemplate string `toml:"render_template"`
}

// LogConfig contains console/file logging sinks.
// Params: sink settings for each output target.
// Returns: logger setup options.
type LogConfig struct {
	Console LogSinkConfig `toml:"console"`
	File    LogSinkConfig `toml:"file"`
}

// LogSinkConfig defines one logging sink.
// Params: sink enable flag, level, format, and path.
// Returns: sink-specific behavior.
type LogSinkConfig struct {
	Enabled bool   `toml:"enabled"`
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	Path    string `toml:"path"`
}

// Settings is the persisted global engine settings blob.
// Params: gates, auto-suppress threshold, test mode, and per-surface rules.
// Returns: settings consumed by pipeline, tracker, and aggregation.
type Settings struct {
	Enabled          bool            `toml:"enabled" json:"enabled"`
	OnlyInDuties     bool            `toml:"only_in_duties" json:"only_in_duties"`
	HideInQuestEvent bool            `toml:"hide_in_quest_event" json:"hide_in_quest_event"`
	AutoSuppress     bool            `toml:"auto_suppress" json:"auto_suppress"`
	AutoSuppressSec  int             `toml:"auto_suppress_sec" json:"auto_suppress_sec"`
	TestMode         bool            `toml:"test_mode" json:"test_mode"`
	Surface          SurfaceSettings `toml:"surface" json:"surface"`
}

// SurfaceSettings groups per-surface settings.
type SurfaceSettings struct {
	Solo         SurfaceConfig `toml:"solo" json:"solo"`
	GroupList    SurfaceConfig `toml:"group_list" json:"group_list"`
	GroupOverlay SurfaceConfig `toml:"group_overlay" json:"group_overlay"`
}

// SurfaceConfig configures one display surface.
// Params: show flag, suppress mode name, and delay seconds.
// Returns: surface visibility rule.
type SurfaceConfig struct {
	Show             bool   `toml:"show" json:"show"`
	SuppressMode     string `toml:"suppress_mode" json:"suppress_mode"`
	SuppressDelaySec int    `toml:"suppress_delay_sec" json:"suppress_delay_sec"`
}

// Mode returns parsed suppress mode; unknown values act as never.
func (c SurfaceConfig) Mode() domain.SuppressMode {
	mode, _ := domain.ParseSuppressMode(c.SuppressMode)
	return mode
}

// Delay returns suppress delay as duration.
func (c SurfaceConfig) Delay() time.Duration {
	if c.SuppressDelaySec < 0 {
		return 0
	}
	return time.Duration(c.SuppressDelaySec) * time.Second
}

// For returns settings of one surface.
// Params: surface key; unknown surfaces yield hidden never-mode settings.
// Returns: surface config copy.
func (s SurfaceSettings) For(surface domain.Surface) SurfaceConfig {
	switch surface {
	case domain.SurfaceSolo:
		return s.Solo
	case domain.SurfaceGroupList:
		return s.GroupList
	case domain.SurfaceGroupOverlay:
		return s.GroupOverlay
	default:
		return SurfaceConfig{SuppressMode: string(domain.SuppressNever)}
	}
}

// AutoSuppressAfter returns auto-suppress threshold as duration.
func (s Settings) AutoSuppressAfter() time.Duration {
	if s.AutoSuppressSec < 0 {
		return 0
	}
	return time.Duration(s.AutoSuppressSec) * time.Second
}

// DefaultSettings returns factory settings for a fresh character.
// Params: none.
// Returns: settings with all surfaces shown and never suppressed.
func DefaultSettings() Settings {
	surface := SurfaceConfig{
		Show:             true,
		SuppressMode:     string(domain.SuppressNever),
		SuppressDelaySec: defaultSuppressDelay,
	}
	return Settings{
		Enabled:          true,
		OnlyInDuties:     true,
		HideInQuestEvent: true,
		AutoSuppressSec:  defaultAutoSuppress,
		Surface: SurfaceSettings{
			Solo:         surface,
			GroupList:    surface,
			GroupOverlay: surface,
		},
	}
}

// Validate validates settings blob.
// Params: settings decoded from TOML or persisted JSON.
// Returns: validation error for negative durations or unknown modes.
func (s Settings) Validate() error {
	if s.AutoSuppressSec < 0 {
		return errors.New("auto_suppress_sec must be >=0")
	}
	for _, surface := range domain.Surfaces() {
		cfg := s.Surface.For(surface)
		if _, err := domain.ParseSuppressMode(cfg.SuppressMode); err != nil {
			return fmt.Errorf("surface.%s.suppress_mode: %w", surface, err)
		}
		if cfg.SuppressDelaySec < 0 {
			return fmt.Errorf("surface.%s.suppress_delay_sec must be >=0", surface)
		}
	}
	return nil
}

// ConfigSource describes file or directory config source.
// Params: exactly one of file path or directory path.
// Returns: normalized source descriptor.
type ConfigSource struct {
	File string
	Dir  string
}

// FromCLI builds normalized source configuration from input paths.
// Params: optional file and directory arguments.
// Returns: source descriptor or validation error.
func FromCLI(filePath, dirPath string) (ConfigSource, error) {
	filePath = strings.TrimSpace(filePath)
	dirPath = strings.TrimSpace(dirPath)

	if filePath == "" && dirPath == "" {
		return ConfigSource{}, errors.New("either --config-file or --config-dir must be provided")
	}
	if filePath != "" && dirPath != "" {
		return ConfigSource{}, errors.New("config source must be either file or dir")
	}

	if filePath != "" {
		return ConfigSource{File: filePath}, nil
	}
	return ConfigSource{Dir: dirPath}, nil
}

// LoadSnapshot loads, overrides from environment, and validates configuration.
// Params: source selects file or directory mode.
// Returns: validated config or load/validation error.
func LoadSnapshot(src ConfigSource) (Config, error) {
	cfg := baseConfig()
	var err error
	if src.File != "" {
		err = loadFile(src.File, &cfg)
	} else {
		err = loadDir(src.Dir, &cfg)
	}
	if err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// baseConfig seeds decode target so absent TOML keys keep their defaults.
// Params: none.
// Returns: config with default-on flags set.
func baseConfig() Config {
	return Config{
		Store:    StoreConfig{AllowCreateBucket: true},
		HTTP:     HTTPConfig{Enabled: true},
		Feed:     FeedConfig{Source: FeedSourceStdin},
		Defaults: DefaultSettings(),
	}
}

// loadFile decodes one TOML file over target.
// Params: file path and decode target holding previous values.
// Returns: read/decode error.
func loadFile(path string, target *Config) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := toml.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode config file %q: %w", path, err)
	}
	return nil
}

// loadDir decodes TOML fragments from one directory in lexical order.
// Params: directory containing config fragments and decode target.
// Returns: load/decode error.
func loadDir(dir string, target *Config) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read config dir %q: %w", dir, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.ToLower(filepath.Ext(name)) != ".toml" {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	if len(files) == 0 {
		return fmt.Errorf("no .toml files found in %q", dir)
	}
	sort.Strings(files)

	for _, file := range files {
		if err := loadFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

// envOverrides lists environment variables that override TOML values.
type envOverrides struct {
	Character    string   `env:"BUFFWATCH_CHARACTER"`
	LogLevel     string   `env:"BUFFWATCH_LOG_LEVEL"`
	StoreBackend string   `env:"BUFFWATCH_STORE_BACKEND"`
	StoreDir     string   `env:"BUFFWATCH_STORE_DIR"`
	NATSURL      []string `env:"BUFFWATCH_NATS_URL" envSeparator:","`
	HTTPListen   string   `env:"BUFFWATCH_HTTP_LISTEN"`
	FeedSource   string   `env:"BUFFWATCH_FEED_SOURCE"`
}

// ApplyEnv overlays BUFFWATCH_* environment variables onto config.
// Params: config decoded from TOML.
// Returns: env parse error.
func ApplyEnv(cfg *Config) error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if overrides.Character != "" {
		cfg.Service.Character = overrides.Character
	}
	if overrides.LogLevel != "" {
		cfg.Log.Console.Level = overrides.LogLevel
		cfg.Log.File.Level = overrides.LogLevel
	}
	if overrides.StoreBackend != "" {
		cfg.Store.Backend = overrides.StoreBackend
	}
	if overrides.StoreDir != "" {
		cfg.Store.Dir = overrides.StoreDir
	}
	if len(overrides.NATSURL) > 0 {
		cfg.Store.NATSURL = overrides.NATSURL
	}
	if overrides.HTTPListen != "" {
		cfg.HTTP.Listen = overrides.HTTPListen
	}
	if overrides.FeedSource != "" {
		cfg.Feed.Source = overrides.FeedSource
	}
	return nil
}

// applyDefaults fills empty process settings.
// Params: decoded config pointer.
// Returns: config with defaults applied.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Service.Name) == "" {
		cfg.Service.Name = defaultServiceName
	}
	if strings.TrimSpace(cfg.Service.Character) == "" {
		cfg.Service.Character = defaultCharacter
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendMemory
	}
	cfg.Store.NATSURL = normalizeNATSURLs(cfg.Store.NATSURL)
	if cfg.Store.Backend == StoreBackendNATS && len(cfg.Store.NATSURL) == 0 {
		cfg.Store.NATSURL = []string{defaultNATSURL}
	}
	if strings.TrimSpace(cfg.Store.Bucket) == "" {
		cfg.Store.Bucket = defaultNATSBucket
	}

	if cfg.Log.Console.Level == "" {
		cfg.Log.Console.Level = "info"
	}
	if cfg.Log.Console.Format == "" {
		cfg.Log.Console.Format = "line"
	}
	if cfg.Log.File.Level == "" {
		cfg.Log.File.Level = "info"
	}
	if cfg.Log.File.Format == "" {
		cfg.Log.File.Format = "json"
	}
	if !cfg.Log.Console.Enabled && !cfg.Log.File.Enabled {
		cfg.Log.Console.Enabled = true
	}

	if strings.TrimSpace(cfg.HTTP.Listen) == "" {
		cfg.HTTP.Listen = defaultHTTPListen
	}
	if strings.TrimSpace(cfg.HTTP.HealthPath) == "" {
		cfg.HTTP.HealthPath = defaultHealthPath
	}
	if strings.TrimSpace(cfg.HTTP.ReadyPath) == "" {
		cfg.HTTP.ReadyPath = defaultReadyPath
	}
	if strings.TrimSpace(cfg.HTTP.FramePath) == "" {
		cfg.HTTP.FramePath = defaultFramePath
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = defaultMaxBodyBytes
	}

	cfg.Feed.Source = strings.TrimSpace(cfg.Feed.Source)
	if strings.TrimSpace(cfg.Feed.RenderTemplate) == "" {
		cfg.Feed.RenderTemplate = DefaultRenderTemplate
	}

	for _, surface := range []*SurfaceConfig{&cfg.Defaults.Surface.Solo, &cfg.Defaults.Surface.GroupList, &cfg.Defaults.Surface.GroupOverlay} {
		if strings.TrimSpace(surface.SuppressMode) == "" {
			surface.SuppressMode = string(domain.SuppressNever)
		}
	}
}

// validateConfig validates normalized config snapshot.
// Params: config after defaults.
// Returns: first validation error.
func validateConfig(cfg Config) error {
	if strings.ContainsAny(cfg.Service.Character, "*> \t") {
		return fmt.Errorf("service.character has unsupported characters %q", cfg.Service.Character)
	}

	switch cfg.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendFile:
		if strings.TrimSpace(cfg.Store.Dir) == "" {
			return errors.New("store.dir is required when store.backend=file")
		}
	case StoreBackendNATS:
		for i, url := range cfg.Store.NATSURL {
			if url == "" {
				return fmt.Errorf("store.nats_url[%d] is empty", i)
			}
		}
	default:
		return fmt.Errorf("store.backend has unsupported value %q", cfg.Store.Backend)
	}

	if cfg.HTTP.Enabled {
		for name, path := range map[string]string{
			"http.health_path": cfg.HTTP.HealthPath,
			"http.ready_path":  cfg.HTTP.ReadyPath,
			"http.frame_path":  cfg.HTTP.FramePath,
		} {
			if !strings.HasPrefix(path, "/") {
				return fmt.Errorf("%s must start with /", name)
			}
		}
	}
	if !cfg.HTTP.Enabled && cfg.Feed.Source == "" {
		return errors.New("feed.source is required when http.enabled=false")
	}

	if err := cfg.Defaults.Validate(); err != nil {
		return fmt.Errorf("defaults.%w", err)
	}

	if err := validateLogSink("log.console", cfg.Log.Console, false); err != nil {
		return err
	}
	if err := validateLogSink("log.file", cfg.Log.File, true); err != nil {
		return err
	}
	return nil
}

// normalizeNATSURLs trims spaces around each configured NATS URL.
// Params: raw URL list from config.
// Returns: normalized URL list preserving element count for validation.
func normalizeNATSURLs(urls []string) []string {
	if len(urls) == 0 {
		return nil
	}
	out := make([]string, len(urls))
	for i := range urls {
		out[i] = strings.TrimSpace(urls[i])
	}
	return out
}

// validateLogSink validates one log sink configuration.
// Params: sink name, sink values, and whether path is required.
// Returns: sink validation error.
func validateLogSink(name string, sink LogSinkConfig, requirePath bool) error {
	if !sink.Enabled {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(sink.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%s.level has unsupported value %q", name, sink.Level)
	}

	switch strings.ToLower(strings.TrimSpace(sink.Format)) {
	case "line", "json":
	default:
		return fmt.Errorf("%s.format has unsupported value %q", name, sink.Format)
	}

	if requirePath && strings.TrimSpace(sink.Path) == "" {
		return fmt.Errorf("%s.path is required", name)
	}

	return nil
}
