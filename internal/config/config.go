// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port         int           `yaml:"port" env:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"` // must exceed the slowest provider chain
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// ProviderConfig holds the endpoint/model overrides for one image backend.
// The credential itself is never read from YAML, only from the environment.
type ProviderConfig struct {
	Name       string `yaml:"-"`
	Credential string `yaml:"-"`
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
}

// Enabled reports whether the provider can be attempted at all.
func (p ProviderConfig) Enabled() bool {
	return strings.TrimSpace(p.Credential) != ""
}

type Credentials struct {
	Replicate string `env:"REPLICATE_API_TOKEN"`
	Together  string `env:"TOGETHER_API_TOKEN"`
	FAL       string `env:"FAL_KEY"`
	Stability string `env:"STABILITY_API_KEY"`
	OpenAI    string `env:"OPENAI_API_KEY"`
	Gemini    string `env:"GEMINI_API_KEY"`
	WebUIURL  string `env:"WEBUI_URL"`
}

type AIConfig struct {
	Order           []string      `yaml:"order"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	PollAttempts    int           `yaml:"poll_attempts"`
	ConcurrentLimit int           `yaml:"concurrent_limit"` // per provider, 0 = unlimited
	EnhancePrompt   bool          `yaml:"enhance_prompt"`
	Placeholder     bool          `yaml:"placeholder"`

	Replicate ProviderConfig `yaml:"replicate"`
	Together  ProviderConfig `yaml:"together"`
	FAL       ProviderConfig `yaml:"fal"`
	Stability ProviderConfig `yaml:"stability"`
	OpenAI    ProviderConfig `yaml:"openai"`
	Imagen    ProviderConfig `yaml:"imagen"`
	WebUI     ProviderConfig `yaml:"webui"`

	Credentials Credentials `yaml:"-"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url" env:"DATABASE_URL"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL       string        `yaml:"url" env:"REDIS_URL"`
	Password  string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int           `yaml:"db"`
	RateLimit int           `yaml:"rate_limit"` // requests per window per client, 0 = off
	Window    time.Duration `yaml:"window"`
}

type RenderConfig struct {
	FFmpegPath string        `yaml:"ffmpeg_path"`
	FontFile   string        `yaml:"font_file"`
	TempDir    string        `yaml:"temp_dir"`
	InputDir   string        `yaml:"input_dir"`  // root for images and audio named over HTTP
	OutputDir  string        `yaml:"output_dir"` // root for output paths named over HTTP
	Workers    int           `yaml:"workers"`
	JobTimeout time.Duration `yaml:"job_timeout"`
	StaleAfter time.Duration `yaml:"stale_after"` // no heartbeat for this long means requeue
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"-" env:"STORAGE_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"STORAGE_SECRET_KEY"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	AI       AIConfig       `yaml:"ai"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Render   RenderConfig   `yaml:"render"`
	Storage  StorageConfig  `yaml:"storage"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultOrder is the fallback order used when ai.order is empty.
var DefaultOrder = []string{"replicate", "together", "fal", "stability", "openai", "imagen", "webui"}

// LoadConfig reads the YAML file at path, overlays the environment and applies defaults.
// A missing file at DefaultPath is not an error; every setting then comes from defaults and env.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	opts := env.Options{}
	for _, target := range []any{&cfg.HTTP, &cfg.AI.Credentials, &cfg.Database, &cfg.Redis, &cfg.Storage} {
		if err := env.ParseWithOptions(target, opts); err != nil {
			return fmt.Errorf("parsing env config: %w", err)
		}
	}

	creds := cfg.AI.Credentials
	bind := func(p *ProviderConfig, name, credential string) {
		p.Name = name
		p.Credential = credential
	}
	bind(&cfg.AI.Replicate, "replicate", creds.Replicate)
	bind(&cfg.AI.Together, "together", creds.Together)
	bind(&cfg.AI.FAL, "fal", creds.FAL)
	bind(&cfg.AI.Stability, "stability", creds.Stability)
	bind(&cfg.AI.OpenAI, "openai", creds.OpenAI)
	bind(&cfg.AI.Imagen, "imagen", creds.Gemini)

	// The local web UI has no secret; its endpoint plays that role.
	if creds.WebUIURL != "" {
		cfg.AI.WebUI.Endpoint = creds.WebUIURL
	}
	bind(&cfg.AI.WebUI, "webui", cfg.AI.WebUI.Endpoint)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8001
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if len(cfg.AI.Order) == 0 {
		cfg.AI.Order = append([]string(nil), DefaultOrder...)
	}
	if cfg.AI.RequestTimeout <= 0 {
		cfg.AI.RequestTimeout = 60 * time.Second
	}
	if cfg.AI.PollInterval <= 0 {
		cfg.AI.PollInterval = 5 * time.Second
	}
	if cfg.AI.PollAttempts <= 0 {
		cfg.AI.PollAttempts = 60
	}
	if cfg.Redis.Window <= 0 {
		cfg.Redis.Window = time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Render.FFmpegPath == "" {
		cfg.Render.FFmpegPath = "ffmpeg"
	}
	if cfg.Render.FontFile == "" {
		cfg.Render.FontFile = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"
	}
	if cfg.Render.TempDir == "" {
		cfg.Render.TempDir = os.TempDir()
	}
	if cfg.Render.InputDir == "" {
		cfg.Render.InputDir = "media"
	}
	if cfg.Render.OutputDir == "" {
		cfg.Render.OutputDir = "renders"
	}
	if cfg.Render.JobTimeout <= 0 {
		cfg.Render.JobTimeout = 20 * time.Minute
	}
	if cfg.Render.Workers <= 0 {
		cfg.Render.Workers = 2
	}
	if cfg.Render.StaleAfter <= 0 {
		cfg.Render.StaleAfter = 30 * time.Minute
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "renders"
	}
	// A request may walk every provider's timeout in turn.
	if cfg.HTTP.WriteTimeout <= 0 {
		poll := cfg.AI.PollInterval * time.Duration(cfg.AI.PollAttempts)
		cfg.HTTP.WriteTimeout = poll + time.Duration(len(cfg.AI.Order))*cfg.AI.RequestTimeout
	}
}

func validate(cfg *Config) error {
	known := map[string]bool{}
	for _, n := range DefaultOrder {
		known[n] = true
	}
	seen := map[string]bool{}
	for _, n := range cfg.AI.Order {
		n = strings.ToLower(strings.TrimSpace(n))
		if !known[n] {
			return fmt.Errorf("ai.order: unknown provider %q", n)
		}
		if seen[n] {
			return fmt.Errorf("ai.order: provider %q listed twice", n)
		}
		seen[n] = true
	}
	if cfg.Storage.Endpoint != "" && (cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "") {
		return errors.New("storage.endpoint set but STORAGE_ACCESS_KEY/STORAGE_SECRET_KEY missing")
	}
	return nil
}

// Provider returns the provider config for a name from ai.order.
func (a *AIConfig) Provider(name string) (ProviderConfig, bool) {
	switch strings.ToLower(name) {
	case "replicate":
		return a.Replicate, true
	case "together":
		return a.Together, true
	case "fal":
		return a.FAL, true
	case "stability":
		return a.Stability, true
	case "openai":
		return a.OpenAI, true
	case "imagen":
		return a.Imagen, true
	case "webui":
		return a.WebUI, true
	}
	return ProviderConfig{}, false
}
