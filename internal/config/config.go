package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Vision holds the template matching and input pacing knobs. All delays and
// timeouts are expressed in seconds, matching the on-disk format.
type Vision struct {
	Threshold           float64 `yaml:"threshold"`
	Timeout             float64 `yaml:"timeout"`
	CheckInterval       float64 `yaml:"checkInterval"`
	Retries             int     `yaml:"retries"`
	DelayBetweenRetries float64 `yaml:"delayBetweenRetries"`
	ClickDuration       float64 `yaml:"clickDuration"`
	PostClickDelay      float64 `yaml:"postClickDelay"`
}

// Navigation holds the state machine run policy.
type Navigation struct {
	InitialState         string  `yaml:"initialState"`
	MaxStopCount         int     `yaml:"maxStopCount"`
	BreakCount           int     `yaml:"breakCount"`
	FallbackKey          string  `yaml:"fallbackKey"`
	StateTransitionDelay float64 `yaml:"stateTransitionDelay"`
	MaxIterations        int     `yaml:"maxIterations"`
}

type Paths struct {
	ImagesDir string `yaml:"imagesDir"`
	LogsDir   string `yaml:"logsDir"`
}

type Server struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type Discord struct {
	Enabled    bool     `yaml:"enabled"`
	Token      string   `yaml:"token"`
	ChannelID  string   `yaml:"channelId"`
	BotAdmins  []string `yaml:"botAdmins"`
	UseWebhook bool     `yaml:"useWebhook"`
	WebhookURL string   `yaml:"webhookUrl"`
}

type Telegram struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chatId"`
}

type Ngrok struct {
	Enabled       bool   `yaml:"enabled"`
	Authtoken     string `yaml:"authtoken"`
	Domain        string `yaml:"domain"`
	BasicAuthUser string `yaml:"basicAuthUser"`
	BasicAuthPass string `yaml:"basicAuthPass"`
}

type Config struct {
	Window struct {
		Title string `yaml:"title"`
	} `yaml:"window"`
	Vision     Vision     `yaml:"vision"`
	Navigation Navigation `yaml:"navigation"`
	Paths      Paths      `yaml:"paths"`
	Server     Server     `yaml:"server"`
	Discord    Discord    `yaml:"discord"`
	Telegram   Telegram   `yaml:"telegram"`
	Ngrok      Ngrok      `yaml:"ngrok"`
	Debug      struct {
		Log bool `yaml:"log"`
	} `yaml:"debug"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Window.Title = "Game"
	cfg.Vision = Vision{
		Threshold:           0.8,
		Timeout:             5,
		CheckInterval:       0.5,
		Retries:             3,
		DelayBetweenRetries: 2,
		ClickDuration:       0.2,
		PostClickDelay:      1,
	}
	cfg.Navigation = Navigation{
		InitialState:         "undefined_menu",
		MaxStopCount:         5,
		BreakCount:           8,
		FallbackKey:          "esc",
		StateTransitionDelay: 0.1,
		MaxIterations:        100,
	}
	cfg.Paths = Paths{ImagesDir: "images", LogsDir: "logs"}
	cfg.Server = Server{Enabled: true, Port: 8087}
	return cfg
}

// Load reads the YAML configuration at path. A missing file is not an
// error: defaults are returned so a fresh checkout runs out of the box.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the configuration back to path.
func (c *Config) Save(path string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return os.WriteFile(path, raw, 0o644)
}

// ValidationError carries every problem found in one pass so the user can
// fix the whole file at once instead of playing whack-a-mole.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

// Validate checks the whole configuration and never silently corrects a
// value. It returns a *ValidationError listing every violation, or nil.
func (c *Config) Validate() error {
	var problems []string

	if c.Vision.Threshold < 0 || c.Vision.Threshold > 1 {
		problems = append(problems, "vision.threshold must be between 0 and 1")
	}
	if c.Vision.Timeout <= 0 {
		problems = append(problems, "vision.timeout must be greater than 0")
	}
	if c.Vision.CheckInterval <= 0 {
		problems = append(problems, "vision.checkInterval must be greater than 0")
	}
	if c.Vision.Retries < 1 {
		problems = append(problems, "vision.retries must be at least 1")
	}
	if c.Navigation.MaxStopCount < 1 {
		problems = append(problems, "navigation.maxStopCount must be at least 1")
	}
	if c.Navigation.BreakCount < 1 {
		problems = append(problems, "navigation.breakCount must be at least 1")
	}
	if c.Navigation.BreakCount <= c.Navigation.MaxStopCount {
		problems = append(problems, "navigation.breakCount must be greater than navigation.maxStopCount, otherwise the recovery nudge can never fire before the hard stop")
	}
	if c.Navigation.InitialState == "" {
		problems = append(problems, "navigation.initialState must not be empty")
	}
	if c.Navigation.MaxIterations < 1 {
		problems = append(problems, "navigation.maxIterations must be at least 1")
	}
	if c.Paths.ImagesDir == "" {
		problems = append(problems, "paths.imagesDir must not be empty")
	}
	if c.Server.Enabled && (c.Server.Port < 1 || c.Server.Port > 65535) {
		problems = append(problems, "server.port must be a valid TCP port")
	}
	if c.Discord.Enabled && !c.Discord.UseWebhook && c.Discord.Token == "" {
		problems = append(problems, "discord.token is required when discord is enabled without webhook mode")
	}
	if c.Discord.Enabled && c.Discord.UseWebhook && c.Discord.WebhookURL == "" {
		problems = append(problems, "discord.webhookUrl is required in webhook mode")
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		problems = append(problems, "telegram.token is required when telegram is enabled")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

// ImagePath resolves a template identifier to its on-disk location.
func (c *Config) ImagePath(name string) string {
	return filepath.Join(c.Paths.ImagesDir, name)
}

// Seconds converts a fractional-seconds config value to a time.Duration.
func Seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
