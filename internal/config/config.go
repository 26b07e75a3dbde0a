// Package config loads service settings from defaults, an optional TOML file and the
// environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultCookiesFile is the conventional credential bundle name, looked up beside the
// configuration file.
const DefaultCookiesFile = "cookies.txt"

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "clipper.toml"

type Config struct {
	Port          int      `toml:"port"`
	WorkspaceDir  string   `toml:"workspace_dir"`
	DataPath      string   `toml:"data_path"`
	DBPath        string   `toml:"db_path"`
	CookiesFile   string   `toml:"cookies_file"`
	PublicBaseURL string   `toml:"public_base_url"`
	CORSOrigins   []string `toml:"cors_origins"`
	YtDlpPath     string   `toml:"ytdlp_path"`
	FFmpegPath    string   `toml:"ffmpeg_path"`
	FFprobePath   string   `toml:"ffprobe_path"`
	LogLevel      string   `toml:"log_level"`
	RateLimit     int      `toml:"rate_limit_per_minute"`
	MaxBodyBytes  int64    `toml:"max_body_bytes"`
	EngineTimeout Duration `toml:"engine_timeout"`

	// source is the config file the values were read from, empty for env-only setups.
	source string
	// envErrs holds environment values that could not be parsed.
	envErrs []error
}

// Duration accepts Go duration strings ("90s", "5m") in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func defaults() *Config {
	return &Config{
		Port:         10000,
		WorkspaceDir: "/tmp/youtube_clips",
		DataPath:     "/data",
		CORSOrigins:  []string{"*"},
		YtDlpPath:    "yt-dlp",
		FFmpegPath:   "ffmpeg",
		FFprobePath:  "ffprobe",
		RateLimit:    30,
		MaxBodyBytes: 64 << 10,
	}
}

// Default returns the built-in configuration without consulting files or environment.
func Default() *Config {
	cfg := defaults()
	cfg.finalize()
	return cfg
}

// Load builds the configuration. When path is empty CLIPPER_CONFIG is consulted, then
// DefaultConfigFile in the working directory. A named file that does not exist is an
// error; a missing implicit file is not.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("CLIPPER_CONFIG"); env != "" {
			path, explicit = env, true
		} else {
			path = DefaultConfigFile
		}
	}
	if err := cfg.readFile(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || explicit {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.finalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.source = path
	return nil
}

func (c *Config) applyEnv() {
	if v, ok := c.envInt("PORT"); ok {
		c.Port = v
	}
	c.WorkspaceDir = getEnv("WORKSPACE_DIR", c.WorkspaceDir)
	c.DataPath = getEnv("DATA_PATH", c.DataPath)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.CookiesFile = getEnv("COOKIES_FILE", c.CookiesFile)
	c.PublicBaseURL = getEnv("PUBLIC_BASE_URL", c.PublicBaseURL)
	c.YtDlpPath = getEnv("YTDLP_PATH", c.YtDlpPath)
	c.FFmpegPath = getEnv("FFMPEG_PATH", c.FFmpegPath)
	c.FFprobePath = getEnv("FFPROBE_PATH", c.FFprobePath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	if v, ok := c.envInt("RATE_LIMIT_PER_MINUTE"); ok {
		c.RateLimit = v
	}
	if v, ok := c.envInt("MAX_BODY_BYTES"); ok {
		c.MaxBodyBytes = int64(v)
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			c.envErrs = append(c.envErrs, fmt.Errorf("ENGINE_TIMEOUT %q is not a duration (e.g. \"90s\")", v))
		} else {
			c.EngineTimeout = Duration(d)
		}
	}

	// CORS origins: comma-separated list or "*"
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		c.CORSOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
}

func (c *Config) finalize() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataPath, "clipper.db")
	}
	if c.CookiesFile == "" {
		dir := "."
		if c.source != "" {
			dir = filepath.Dir(c.source)
		}
		c.CookiesFile = filepath.Join(dir, DefaultCookiesFile)
	}
	c.PublicBaseURL = strings.TrimRight(c.PublicBaseURL, "/")
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.WorkspaceDir) == "" {
		errs = append(errs, errors.New("workspace_dir is required"))
	}
	if strings.TrimSpace(c.DataPath) == "" {
		errs = append(errs, errors.New("data_path is required"))
	}
	// Everything under the workspace is purgeable and downloadable, so service state
	// and credentials must live elsewhere.
	if ws := strings.TrimSpace(c.WorkspaceDir); ws != "" {
		if c.DataPath != "" && within(ws, c.DataPath) {
			errs = append(errs, fmt.Errorf("data_path %q must not be inside workspace_dir %q", c.DataPath, ws))
		}
		if c.DBPath != "" && within(ws, c.DBPath) {
			errs = append(errs, fmt.Errorf("db_path %q must not be inside workspace_dir %q", c.DBPath, ws))
		}
		if c.CookiesFile != "" && within(ws, c.CookiesFile) {
			errs = append(errs, fmt.Errorf("cookies_file %q must not be inside workspace_dir %q", c.CookiesFile, ws))
		}
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("public_base_url %q must be an absolute http(s) URL", c.PublicBaseURL))
		}
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("rate_limit_per_minute must not be negative"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("max_body_bytes must be positive"))
	}
	if c.EngineTimeout < 0 {
		errs = append(errs, errors.New("engine_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Source returns the configuration file path the values were read from, if any.
func (c *Config) Source() string { return c.source }

// LockPath is where the workspace owner lock lives. It sits outside the workspace so a
// purge never removes it.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataPath, "workspace.lock")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *Config) envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.envErrs = append(c.envErrs, fmt.Errorf("%s %q is not an integer", key, v))
		return 0, false
	}
	return n, true
}

// within reports whether path is dir itself or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(absPath(dir), absPath(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
