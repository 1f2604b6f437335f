// Package config resolves csvclean settings from, lowest to highest precedence:
// built-in defaults, a YAML config file, a .env file and the process
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file discovered by walking up from the working directory.
const FileName = ".csvclean.yaml"

// DefaultLockTimeout bounds how long a run waits for the cache directory lock.
const DefaultLockTimeout = 5 * time.Second

// Environment variables read by Load.
const (
	EnvConfig      = "CSVCLEAN_CONFIG"
	EnvColumn      = "CSVCLEAN_COLUMN"
	EnvRegex       = "CSVCLEAN_REGEX"
	EnvVerbose     = "CSVCLEAN_VERBOSE"
	EnvFormat      = "CSVCLEAN_FORMAT"
	EnvCacheDir    = "CSVCLEAN_CACHE_DIR"
	EnvLockTimeout = "CSVCLEAN_LOCK_TIMEOUT"
	EnvCRLF        = "CSVCLEAN_CRLF"
)

// Config holds resolved settings. Empty Column and Regex mean no filter; an
// empty Format means auto-detect; an empty CacheDir disables the result cache.
type Config struct {
	Column      string        `yaml:"column"`
	Regex       string        `yaml:"regex"`
	Verbose     bool          `yaml:"verbose"`
	Format      string        `yaml:"format"`
	CacheDir    string        `yaml:"cache_dir"`
	LockTimeout time.Duration `yaml:"lock_timeout"`
	CRLF        bool          `yaml:"crlf"`

	// Source is the config file that was loaded, or "" when none was found.
	Source string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{LockTimeout: DefaultLockTimeout}
}

// Load resolves settings for a run in workDir. explicitPath, when non-empty,
// names the config file to use and must exist; otherwise CSVCLEAN_CONFIG is
// consulted, then FileName is searched for from workDir upward.
func Load(workDir, explicitPath string) (Config, error) {
	cfg := Default()

	env, err := readEnv(workDir)
	if err != nil {
		return Config{}, err
	}

	path := explicitPath
	if path == "" {
		path = env.get(EnvConfig)
	}
	if path != "" {
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
	} else {
		path = Discover(workDir)
	}

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
		cfg.Source = path
	}

	if err := applyEnv(env, &cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Discover walks up from startDir looking for FileName. It returns the
// absolute path of the first match or "" when none exists.
func Discover(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Validate checks values that cannot be checked by decoding alone.
func (c Config) Validate() error {
	switch c.Format {
	case "", "toon", "pretty", "json":
	default:
		return fmt.Errorf("invalid format %q (want toon, pretty or json)", c.Format)
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must not be negative, got %s", c.LockTimeout)
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// environ looks variables up in the process environment first and falls back
// to values read from a .env file. Empty values count as unset.
type environ struct {
	dotenv map[string]string
}

func (e environ) lookup(key string) (string, bool) {
	if v := os.Getenv(key); v != "" {
		return v, true
	}
	v := e.dotenv[key]
	return v, v != ""
}

func (e environ) get(key string) string {
	v, _ := e.lookup(key)
	return v
}

func readEnv(workDir string) (environ, error) {
	path := filepath.Join(workDir, ".env")
	if _, err := os.Stat(path); err != nil {
		return environ{}, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		return environ{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return environ{dotenv: values}, nil
}

func applyEnv(env environ, cfg *Config) error {
	if v, ok := env.lookup(EnvColumn); ok {
		cfg.Column = v
	}
	if v, ok := env.lookup(EnvRegex); ok {
		cfg.Regex = v
	}
	if v, ok := env.lookup(EnvFormat); ok {
		cfg.Format = v
	}
	if v, ok := env.lookup(EnvCacheDir); ok {
		cfg.CacheDir = v
	}

	for key, dst := range map[string]*bool{EnvVerbose: &cfg.Verbose, EnvCRLF: &cfg.CRLF} {
		v, ok := env.lookup(key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: invalid boolean %q", key, v)
		}
		*dst = b
	}

	if v, ok := env.lookup(EnvLockTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q", EnvLockTimeout, v)
		}
		cfg.LockTimeout = d
	}
	return nil
}
