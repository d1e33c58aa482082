package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var ErrNoSources = errors.New("error loading OH_SOURCES_PATH: no sources configured")

type Config struct {
	Env       string // Env is the current environment: local, development, production.
	Storage   Storage
	Tg        Telegram
	HTTP      HTTP
	Fetch     Fetch
	Price     Price
	Schedule  Schedule
	RunLimit  int // RunLimit caps how many sources a run fetches in parallel.
	Sources   []Source
	SourceCfg string // SourceCfg is the path the source registry was read from.
}

type Storage struct {
	Driver      string // Driver is sqlite or postgres.
	Path        string // Path is the SQLite database file.
	PostgresDSN string
}

type Telegram struct {
	Token   string        // Token is an unique telgram bot token. Empty disables the bot.
	Timeout time.Duration // Timeout is a poller timeout duration.
}

type HTTP struct {
	Addr        string
	CORSOrigins []string
}

type Fetch struct {
	Timeout        time.Duration // Timeout bounds a static fetch.
	RenderTimeout  time.Duration // RenderTimeout bounds a rendered fetch.
	UserAgent      string
	AcceptLanguage string
	BrowserBin     string // BrowserBin overrides the browser the launcher downloads.
	HostRate       float64
	MaxBodyBytes   int64
}

type Price struct {
	Floor           float64
	RequireCurrency bool
}

type Schedule struct {
	Interval      time.Duration // Interval between catalog refresh runs.
	AlertInterval time.Duration // AlertInterval between alert sweeps.
}

// Source is one retailer adapter configuration.
type Source struct {
	Name         string        `mapstructure:"name"`
	Kind         string        `mapstructure:"kind"`     // selector or text
	Strategy     string        `mapstructure:"strategy"` // static or rendered
	SearchURL    string        `mapstructure:"search_url"`
	CatalogURL   string        `mapstructure:"catalog_url"`
	Limit        int           `mapstructure:"limit"`
	WaitSelector string        `mapstructure:"wait_selector"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	Scroll       bool          `mapstructure:"scroll"`
	Selectors    Selectors     `mapstructure:"selectors"`
}

// Selectors are CSS selectors relative to a product card.
type Selectors struct {
	Card      []string `mapstructure:"card"` // tried in order, first match wins
	Name      string   `mapstructure:"name"`
	Link      string   `mapstructure:"link"`
	Price     string   `mapstructure:"price"`
	PriceAttr string   `mapstructure:"price_attr"`
	Image     string   `mapstructure:"image"`
	ImageAttr string   `mapstructure:"image_attr"`
}

// MustLoad loads the configuration from environment variables and the source registry file
// and returns a Config struct.
func MustLoad() *Config {
	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("OH")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("STORAGE_DRIVER", "sqlite")
	viper.SetDefault("STORAGE_PATH", "offerhunt.db")
	viper.SetDefault("TELEGRAM_TIMEOUT", "15s")
	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("SOURCES_PATH", "configs/sources.yaml")
	viper.SetDefault("FETCH_TIMEOUT", "15s")
	viper.SetDefault("RENDER_TIMEOUT", "45s")
	viper.SetDefault("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/121.0.0.0 Safari/537.36")
	viper.SetDefault("ACCEPT_LANGUAGE", "es-419,es;q=0.9")
	viper.SetDefault("HOST_RATE_PER_SEC", 1.0)
	viper.SetDefault("MAX_BODY_BYTES", 8<<20)
	viper.SetDefault("RUN_CONCURRENCY", 4)
	viper.SetDefault("PRICE_FLOOR", 5000)
	viper.SetDefault("REQUIRE_CURRENCY", true)
	viper.SetDefault("SCHEDULE_INTERVAL", "6h")
	viper.SetDefault("ALERT_INTERVAL", "24h")

	sourcesPath := viper.GetString("SOURCES_PATH")
	sources, err := LoadSources(sourcesPath)
	if err != nil {
		panic(err)
	}

	return &Config{
		Env: viper.GetString("ENV"),
		Storage: Storage{
			Driver:      viper.GetString("STORAGE_DRIVER"),
			Path:        viper.GetString("STORAGE_PATH"),
			PostgresDSN: viper.GetString("POSTGRES_DSN"),
		},
		Tg: Telegram{
			Token:   viper.GetString("TELEGRAM_TOKEN"),
			Timeout: viper.GetDuration("TELEGRAM_TIMEOUT"),
		},
		HTTP: HTTP{
			Addr:        viper.GetString("HTTP_ADDR"),
			CORSOrigins: splitList(viper.GetString("CORS_ORIGINS")),
		},
		Fetch: Fetch{
			Timeout:        viper.GetDuration("FETCH_TIMEOUT"),
			RenderTimeout:  viper.GetDuration("RENDER_TIMEOUT"),
			UserAgent:      viper.GetString("USER_AGENT"),
			AcceptLanguage: viper.GetString("ACCEPT_LANGUAGE"),
			BrowserBin:     viper.GetString("BROWSER_BIN"),
			HostRate:       viper.GetFloat64("HOST_RATE_PER_SEC"),
			MaxBodyBytes:   viper.GetInt64("MAX_BODY_BYTES"),
		},
		Price: Price{
			Floor:           viper.GetFloat64("PRICE_FLOOR"),
			RequireCurrency: viper.GetBool("REQUIRE_CURRENCY"),
		},
		Schedule: Schedule{
			Interval:      viper.GetDuration("SCHEDULE_INTERVAL"),
			AlertInterval: viper.GetDuration("ALERT_INTERVAL"),
		},
		RunLimit:  viper.GetInt("RUN_CONCURRENCY"),
		Sources:   sources,
		SourceCfg: sourcesPath,
	}
}

// LoadSources reads the source registry from a YAML file.
func LoadSources(path string) ([]Source, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
	}

	var sources []Source
	if err := v.UnmarshalKey("sources", &sources); err != nil {
		return nil, fmt.Errorf("failed to decode sources file %s: %w", path, err)
	}

	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	return sources, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
