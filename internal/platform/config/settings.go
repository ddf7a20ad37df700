package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
)

// EnvPrefix namespaces every environment key the service reads
const EnvPrefix = "UNFURL_"

// Settings is the finished configuration value set, constructed once at
// startup and passed explicitly into every component that needs it
type Settings struct {
	Port             int    `json:"port" validate:"min=1,max=65535"`
	Workers          int    `json:"workers" validate:"min=1,max=1024"`
	TimeoutMs        int    `json:"timeout_ms" validate:"min=1"`
	MaxContentLength int64  `json:"max_content_length" validate:"min=1"`
	MaxRedirects     int    `json:"max_redirects" validate:"min=1,max=50"`
	FetchDisabled    bool   `json:"fetch_disabled"`
	WhitelistPath    string `json:"whitelist"`
	ShortlistPath    string `json:"shortlist"`
	LogPath          string `json:"log_path"`
	LogLevel         string `json:"log_level" validate:"omitempty,oneof=debug verbose info warn error"`
	LogFormat        string `json:"log_format" validate:"omitempty,oneof=console json"`
	LogRotate        bool   `json:"log_rotate"`
	CORS             bool   `json:"cors"`
}

// Defaults returns the built-in configuration
func Defaults() Settings {
	return Settings{
		Port:             8080,
		Workers:          runtime.NumCPU(),
		TimeoutMs:        5000,
		MaxContentLength: 2 * 1024 * 1024,
		MaxRedirects:     10,
		LogLevel:         "info",
		LogFormat:        "console",
	}
}

// Timeout is the per-request outbound timeout
func (s Settings) Timeout() time.Duration { return time.Duration(s.TimeoutMs) * time.Millisecond }

// Addr is the listen address derived from Port
func (s Settings) Addr() string { return fmt.Sprintf(":%d", s.Port) }

// InboundTimeout bounds a whole inbound request: every outbound hop is
// itself bounded, so worst case is timeout x hops for the HEAD plus the
// same again when a GET is permitted, plus a fixed tolerance margin
func (s Settings) InboundTimeout() time.Duration {
	phases := 1
	if !s.FetchDisabled {
		phases = 2
	}
	return s.Timeout()*time.Duration(s.MaxRedirects*phases) + 5*time.Second
}

// Load resolves Settings from args with precedence
// CLI flags > UNFURL_* env > JSON config file > defaults
func Load(args []string) (Settings, error) {
	fs := flag.NewFlagSet("unfurl", flag.ContinueOnError)
	var (
		flagConfig       = fs.String("config", "", "path to JSON config file")
		flagPort         = fs.Int("port", 0, "listen port")
		flagWorkers      = fs.Int("workers", 0, "worker count (default: CPU count)")
		flagTimeout      = fs.Int("timeout", 0, "outbound request timeout in ms")
		flagMaxSize      = fs.Int64("max-size", 0, "maximum content length in bytes")
		flagMaxRedirects = fs.Int("max-redirects", 0, "maximum redirect hops")
		flagNoFetch      = fs.Bool("no-fetch", false, "disable content fetching")
		flagWhitelist    = fs.String("whitelist", "", "whitelist file path")
		flagShortlist    = fs.String("shortlist", "", "shortlist file path")
		flagLogFile      = fs.String("log-file", "", "log file path (default: stdout)")
		flagLogLevel     = fs.String("log-level", "", "log level: debug|verbose|info|warn|error")
		flagLogFormat    = fs.String("log-format", "", "log format: console|json")
		flagLogRotate    = fs.Bool("log-rotate", false, "rotate the log file by size")
		flagCORS         = fs.Bool("cors", false, "enable permissive CORS on the endpoint")
	)
	if err := fs.Parse(args); err != nil {
		return Settings{}, err
	}

	s := Defaults()
	env := New().Prefix(EnvPrefix)

	// JSON config file, lowest of the explicit layers
	cfgPath := env.MayString("CONFIG", "")
	if *flagConfig != "" {
		cfgPath = *flagConfig
	}
	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return Settings{}, fmt.Errorf("read config file %s: %w", cfgPath, err)
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config file %s: %w", cfgPath, err)
		}
	}

	// environment overlay
	s.Port = env.MayInt("PORT", s.Port)
	s.Workers = env.MayInt("WORKERS", s.Workers)
	s.TimeoutMs = env.MayInt("TIMEOUT_MS", s.TimeoutMs)
	s.MaxContentLength = env.MayInt64("MAX_CONTENT_LENGTH", s.MaxContentLength)
	s.MaxRedirects = env.MayInt("MAX_REDIRECTS", s.MaxRedirects)
	s.FetchDisabled = env.MayBool("FETCH_DISABLED", s.FetchDisabled)
	s.WhitelistPath = env.MayString("WHITELIST", s.WhitelistPath)
	s.ShortlistPath = env.MayString("SHORTLIST", s.ShortlistPath)
	s.LogPath = env.MayString("LOG_PATH", s.LogPath)
	s.LogLevel = env.MayString("LOG_LEVEL", s.LogLevel)
	s.LogFormat = env.MayString("LOG_FORMAT", s.LogFormat)
	s.LogRotate = env.MayBool("LOG_ROTATE", s.LogRotate)
	s.CORS = env.MayBool("CORS", s.CORS)

	// flags override everything, but only the ones actually set
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			s.Port = *flagPort
		case "workers":
			s.Workers = *flagWorkers
		case "timeout":
			s.TimeoutMs = *flagTimeout
		case "max-size":
			s.MaxContentLength = *flagMaxSize
		case "max-redirects":
			s.MaxRedirects = *flagMaxRedirects
		case "no-fetch":
			s.FetchDisabled = *flagNoFetch
		case "whitelist":
			s.WhitelistPath = *flagWhitelist
		case "shortlist":
			s.ShortlistPath = *flagShortlist
		case "log-file":
			s.LogPath = *flagLogFile
		case "log-level":
			s.LogLevel = *flagLogLevel
		case "log-format":
			s.LogFormat = *flagLogFormat
		case "log-rotate":
			s.LogRotate = *flagLogRotate
		case "cors":
			s.CORS = *flagCORS
		}
	})

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(s); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}
