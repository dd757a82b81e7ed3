package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide settings shared by every mashup run.
type Config struct {
	Port    int    `yaml:"port"`
	WorkDir string `yaml:"work_dir"`

	// Source discovery
	SearchURL        string        `yaml:"search_url"`
	WatchURL         string        `yaml:"watch_url"`
	SearchSuffix     string        `yaml:"search_suffix"`
	SearchTimeout    time.Duration `yaml:"search_timeout"`
	SearchRetryMax   int           `yaml:"search_retry_max"`
	MaxSourceSeconds int           `yaml:"max_source_seconds"`

	// External tools
	YTDLPBin   string `yaml:"ytdlp_bin"`
	FFmpegBin  string `yaml:"ffmpeg_bin"`
	FFprobeBin string `yaml:"ffprobe_bin"`

	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	TranscodeTimeout time.Duration `yaml:"transcode_timeout"`
	Workers          int           `yaml:"workers"`
	MinItems         int           `yaml:"min_items"` // 0 = every selected item must survive

	// Normalized audio
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`

	// Delivery
	SMTPHost     string        `yaml:"smtp_host"`
	SMTPPort     int           `yaml:"smtp_port"`
	SMTPUsername string        `yaml:"smtp_username"`
	SMTPPassword string        `yaml:"-"`
	SMTPFrom     string        `yaml:"smtp_from"`
	SMTPTimeout  time.Duration `yaml:"smtp_timeout"`
	Subject      string        `yaml:"subject"`
	ArchiveName  string        `yaml:"archive_name"`
	OutputName   string        `yaml:"output_name"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:             8080,
		WorkDir:          os.TempDir(),
		SearchURL:        "https://www.youtube.com/results",
		WatchURL:         "https://www.youtube.com/watch?v=",
		SearchSuffix:     "songs",
		SearchTimeout:    15 * time.Second,
		MaxSourceSeconds: 250,
		YTDLPBin:         "yt-dlp",
		FFmpegBin:        "ffmpeg",
		FFprobeBin:       "ffprobe",
		FetchTimeout:     3 * time.Minute,
		TranscodeTimeout: 2 * time.Minute,
		Workers:          4,
		SampleRate:       44100,
		Channels:         2,
		SMTPHost:         "smtp.example.com",
		SMTPPort:         587,
		SMTPTimeout:      30 * time.Second,
		Subject:          "Mashup Result",
		ArchiveName:      "mashup_result.zip",
		OutputName:       "output.wav",
	}
}

// Load applies, in order: defaults, the YAML file named by MASHUP_CONFIG,
// then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("MASHUP_CONFIG")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	cfg.Port = envInt("PORT", cfg.Port)
	cfg.WorkDir = envStr("MASHUP_WORKDIR", cfg.WorkDir)

	cfg.SearchURL = envStr("MASHUP_SEARCH_URL", cfg.SearchURL)
	cfg.WatchURL = envStr("MASHUP_WATCH_URL", cfg.WatchURL)
	cfg.SearchSuffix = envStr("MASHUP_SEARCH_SUFFIX", cfg.SearchSuffix)
	cfg.SearchTimeout = envDuration("MASHUP_SEARCH_TIMEOUT", cfg.SearchTimeout)
	cfg.SearchRetryMax = envInt("MASHUP_SEARCH_RETRY_MAX", cfg.SearchRetryMax)
	cfg.MaxSourceSeconds = envInt("MASHUP_MAX_SOURCE_SECONDS", cfg.MaxSourceSeconds)

	cfg.YTDLPBin = envStr("MASHUP_YTDLP_BIN", cfg.YTDLPBin)
	cfg.FFmpegBin = envStr("MASHUP_FFMPEG_BIN", cfg.FFmpegBin)
	cfg.FFprobeBin = envStr("MASHUP_FFPROBE_BIN", cfg.FFprobeBin)

	cfg.FetchTimeout = envDuration("MASHUP_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.TranscodeTimeout = envDuration("MASHUP_TRANSCODE_TIMEOUT", cfg.TranscodeTimeout)
	cfg.Workers = envInt("MASHUP_WORKERS", cfg.Workers)
	cfg.MinItems = envInt("MASHUP_MIN_ITEMS", cfg.MinItems)

	cfg.SampleRate = envInt("MASHUP_SAMPLE_RATE", cfg.SampleRate)
	cfg.Channels = envInt("MASHUP_CHANNELS", cfg.Channels)

	cfg.SMTPHost = envStr("SMTP_HOST", cfg.SMTPHost)
	cfg.SMTPPort = envInt("SMTP_PORT", cfg.SMTPPort)
	cfg.SMTPUsername = envStr("SMTP_USERNAME", cfg.SMTPUsername)
	cfg.SMTPPassword = envStr("SMTP_PASSWORD", cfg.SMTPPassword)
	cfg.SMTPFrom = envStr("SMTP_FROM", cfg.SMTPFrom)
	cfg.SMTPTimeout = envDuration("SMTP_TIMEOUT", cfg.SMTPTimeout)
	cfg.Subject = envStr("MASHUP_SUBJECT", cfg.Subject)
	cfg.ArchiveName = envStr("MASHUP_ARCHIVE_NAME", cfg.ArchiveName)
	cfg.OutputName = envStr("MASHUP_OUTPUT_NAME", cfg.OutputName)

	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}
}

// Validate rejects settings no run could succeed with.
func (c Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.SampleRate < 1 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %d", c.SampleRate))
	}
	if c.Channels < 1 {
		errs = append(errs, fmt.Errorf("channels must be positive, got %d", c.Channels))
	}
	if c.MaxSourceSeconds < 1 {
		errs = append(errs, fmt.Errorf("max source seconds must be positive, got %d", c.MaxSourceSeconds))
	}
	if c.MinItems < 0 {
		errs = append(errs, fmt.Errorf("min items must not be negative, got %d", c.MinItems))
	}
	if c.SearchRetryMax < 0 {
		errs = append(errs, fmt.Errorf("search retry max must not be negative, got %d", c.SearchRetryMax))
	}
	if strings.TrimSpace(c.SearchURL) == "" || strings.TrimSpace(c.WatchURL) == "" {
		errs = append(errs, errors.New("search and watch URLs are required"))
	}
	if strings.TrimSpace(c.OutputName) == "" || strings.ContainsAny(c.OutputName, `/\`) {
		errs = append(errs, fmt.Errorf("output name must be a bare filename, got %q", c.OutputName))
	}
	return errors.Join(errs...)
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") or bare seconds ("90").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
