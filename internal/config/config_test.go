package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every csvclean variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvConfig, EnvColumn, EnvRegex, EnvVerbose, EnvFormat, EnvCacheDir, EnvLockTimeout, EnvCRLF,
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("it returns defaults when nothing is configured", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg != Default() {
			t.Errorf("cfg = %+v, want %+v", cfg, Default())
		}
	})

	t.Run("it reads the discovered config file", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), strings.Join([]string{
			"column: name",
			"regex: ^b$",
			"verbose: true",
			"format: json",
			"cache_dir: .cache",
			"lock_timeout: 2s",
			"crlf: true",
		}, "\n"))

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		want := Config{
			Column:      "name",
			Regex:       "^b$",
			Verbose:     true,
			Format:      "json",
			CacheDir:    ".cache",
			LockTimeout: 2 * time.Second,
			CRLF:        true,
			Source:      filepath.Join(dir, FileName),
		}
		if cfg != want {
			t.Errorf("cfg = %+v, want %+v", cfg, want)
		}
	})

	t.Run("it finds the config file in a parent directory", func(t *testing.T) {
		clearEnv(t)
		root := t.TempDir()
		writeFile(t, filepath.Join(root, FileName), "column: id\n")
		child := filepath.Join(root, "a", "b")
		if err := os.MkdirAll(child, 0755); err != nil {
			t.Fatalf("creating child dir: %v", err)
		}

		cfg, err := Load(child, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Column != "id" {
			t.Errorf("Column = %q, want %q", cfg.Column, "id")
		}
	})

	t.Run("it prefers an explicit path over discovery", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "column: discovered\n")
		writeFile(t, filepath.Join(dir, "other.yaml"), "column: explicit\n")

		cfg, err := Load(dir, "other.yaml")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Column != "explicit" {
			t.Errorf("Column = %q, want %q", cfg.Column, "explicit")
		}
	})

	t.Run("it uses CSVCLEAN_CONFIG when no explicit path is given", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		path := filepath.Join(dir, "env.yaml")
		writeFile(t, path, "regex: x\n")
		t.Setenv(EnvConfig, path)

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Regex != "x" || cfg.Source != path {
			t.Errorf("cfg = %+v, want regex x from %s", cfg, path)
		}
	})

	t.Run("it fails when an explicit config file is missing", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(t.TempDir(), "nope.yaml")
		if err == nil {
			t.Fatal("expected error for missing config")
		}
	})

	t.Run("it rejects unknown keys", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "colum: name\n")

		_, err := Load(dir, "")
		if err == nil || !strings.Contains(err.Error(), "colum") {
			t.Errorf("error = %v, want it to name the unknown key", err)
		}
	})

	t.Run("it accepts an empty config file", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "")

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.LockTimeout != DefaultLockTimeout {
			t.Errorf("LockTimeout = %s, want default", cfg.LockTimeout)
		}
	})

	t.Run("it rejects an unknown format", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "format: xml\n")

		if _, err := Load(dir, ""); err == nil {
			t.Fatal("expected error for unknown format")
		}
	})

	t.Run("it lets the environment override the file", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, FileName), "column: name\nverbose: false\nlock_timeout: 2s\n")
		t.Setenv(EnvColumn, "id")
		t.Setenv(EnvVerbose, "true")
		t.Setenv(EnvLockTimeout, "250ms")
		t.Setenv(EnvCRLF, "1")

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Column != "id" || !cfg.Verbose || !cfg.CRLF || cfg.LockTimeout != 250*time.Millisecond {
			t.Errorf("cfg = %+v", cfg)
		}
	})

	t.Run("it reads a .env file without overriding the process environment", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, ".env"), "CSVCLEAN_COLUMN=name\nCSVCLEAN_REGEX=from-dotenv\nCSVCLEAN_CACHE_DIR=.cache\n")
		t.Setenv(EnvRegex, "from-env")

		cfg, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Column != "name" {
			t.Errorf("Column = %q, want %q", cfg.Column, "name")
		}
		if cfg.Regex != "from-env" {
			t.Errorf("Regex = %q, want %q", cfg.Regex, "from-env")
		}
		if cfg.CacheDir != ".cache" {
			t.Errorf("CacheDir = %q, want %q", cfg.CacheDir, ".cache")
		}
	})

	t.Run("it reports invalid boolean and duration values", func(t *testing.T) {
		for _, tc := range []struct {
			key, value string
		}{
			{EnvVerbose, "maybe"},
			{EnvCRLF, "sometimes"},
			{EnvLockTimeout, "soon"},
		} {
			t.Run(tc.key, func(t *testing.T) {
				clearEnv(t)
				t.Setenv(tc.key, tc.value)

				_, err := Load(t.TempDir(), "")
				if err == nil || !strings.Contains(err.Error(), tc.key) {
					t.Errorf("error = %v, want it to name %s", err, tc.key)
				}
			})
		}
	})
}

func TestDiscover(t *testing.T) {
	t.Run("it ignores a directory with the config file name", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.Mkdir(filepath.Join(dir, FileName), 0755); err != nil {
			t.Fatalf("creating dir: %v", err)
		}
		if got := Discover(dir); got == filepath.Join(dir, FileName) {
			t.Errorf("Discover returned a directory: %s", got)
		}
	})

	t.Run("it returns the nearest config file", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, FileName), "")
		writeFile(t, filepath.Join(root, "sub", FileName), "")

		got := Discover(filepath.Join(root, "sub"))
		if want := filepath.Join(root, "sub", FileName); got != want {
			t.Errorf("Discover = %q, want %q", got, want)
		}
	})
}
