package infra

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"trade_desk/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is sent on REST and socket handshakes
	DefaultUserAgent = "trade-desk/1.0"

	defaultReconnectDelayMS = 3000
	defaultBufferSize       = 100
	defaultFallbackInterval = domain.Interval1h
	defaultLookbackHours    = 24
	defaultPollIntervalSec  = 60
	defaultRequestTimeout   = 10
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 접속 주소를 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		BaseURL           string `yaml:"base_url"`
		WSURL             string `yaml:"ws_url"`
		RequestTimeoutSec int    `yaml:"request_timeout_sec"`
	} `yaml:"api"`

	Feed struct {
		Symbol           string `yaml:"symbol"`
		ReconnectDelayMS int    `yaml:"reconnect_delay_ms"`
		BufferSize       int    `yaml:"buffer_size"`
		Fallback         struct {
			Interval        string `yaml:"interval"`
			LookbackHours   int    `yaml:"lookback_hours"`
			PollIntervalSec int    `yaml:"poll_interval_sec"`
		} `yaml:"fallback"`
	} `yaml:"feed"`

	Trading struct {
		Balance decimal.Decimal `yaml:"balance"`
	} `yaml:"trading"`

	UI struct {
		UpdateIntervalMS int `yaml:"update_interval_ms"`
	} `yaml:"ui"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML, applies defaults and env overrides, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	// 접속 주소만 환경 변수로 오버라이드
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.API.RequestTimeoutSec == 0 {
		c.API.RequestTimeoutSec = defaultRequestTimeout
	}
	if c.Feed.ReconnectDelayMS == 0 {
		c.Feed.ReconnectDelayMS = defaultReconnectDelayMS
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = defaultBufferSize
	}
	if c.Feed.Fallback.Interval == "" {
		c.Feed.Fallback.Interval = defaultFallbackInterval
	}
	if c.Feed.Fallback.LookbackHours == 0 {
		c.Feed.Fallback.LookbackHours = defaultLookbackHours
	}
	if c.Feed.Fallback.PollIntervalSec == 0 {
		c.Feed.Fallback.PollIntervalSec = defaultPollIntervalSec
	}
	if c.UI.UpdateIntervalMS == 0 {
		c.UI.UpdateIntervalMS = 1000
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &domain.ConfigError{Field: "api.base_url", Err: fmt.Errorf("invalid REST base URL: %q", c.API.BaseURL)}
	}

	if !strings.HasPrefix(c.API.WSURL, "ws://") && !strings.HasPrefix(c.API.WSURL, "wss://") {
		return &domain.ConfigError{Field: "api.ws_url", Err: fmt.Errorf("invalid WS URL: %q", c.API.WSURL)}
	}

	if c.Feed.ReconnectDelayMS < 0 {
		return &domain.ConfigError{Field: "feed.reconnect_delay_ms", Err: errors.New("reconnect delay must be positive")}
	}
	if c.Feed.BufferSize < 0 {
		return &domain.ConfigError{Field: "feed.buffer_size", Err: errors.New("buffer size must be positive")}
	}
	if !domain.IsValidInterval(c.Feed.Fallback.Interval) {
		return &domain.ConfigError{Field: "feed.fallback.interval", Err: fmt.Errorf("unsupported interval %q", c.Feed.Fallback.Interval)}
	}
	if c.Feed.Fallback.LookbackHours < 0 || c.Feed.Fallback.PollIntervalSec < 0 {
		return &domain.ConfigError{Field: "feed.fallback", Err: errors.New("lookback and poll interval must be positive")}
	}

	if c.Trading.Balance.IsNegative() {
		return &domain.ConfigError{Field: "trading.balance", Err: errors.New("balance cannot be negative")}
	}

	if c.UI.UpdateIntervalMS < 0 {
		return &domain.ConfigError{Field: "ui.update_interval_ms", Err: errors.New("update interval must be positive")}
	}

	return nil
}

// ReconnectDelay returns the fixed delay between reconnect attempts
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.Feed.ReconnectDelayMS) * time.Millisecond
}

// RequestTimeout returns the REST client timeout
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.RequestTimeoutSec) * time.Second
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("TRADE_DESK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("TRADE_DESK_WS_URL"); v != "" {
		cfg.API.WSURL = v
	}
}
