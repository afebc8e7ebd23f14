package config_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/adamwoolhether/pakfetch/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// unsetAfter removes variables a .env file exported into the process.
func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	if err := config.Validate(&cfg); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()

	file := filepath.Join(dir, "pakfetch.yaml")
	writeFile(t, file, `
manifest: from-file.json
dest_dir: from-file
concurrency: 3
hash: sha1
progress: log
poll_interval: 50ms
`)

	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "PAKFETCH_CONCURRENCY=5\nPAKFETCH_PROGRESS=none\nPAKFETCH_PAUSE=never\n")
	unsetAfter(t, "PAKFETCH_CONCURRENCY", "PAKFETCH_PAUSE")

	t.Setenv("PAKFETCH_PROGRESS", "tty")

	cfg := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse([]string{"--concurrency", "7"}); err != nil {
		t.Fatal(err)
	}

	err := cfg.Load(config.Sources{
		File:     file,
		EnvFiles: []string{envFile, filepath.Join(dir, "missing.env")},
		Flags:    fs,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := config.Default()
	want.Manifest = "from-file.json"
	want.DestDir = "from-file"
	want.Hash = "sha1"
	want.PollInterval = 50 * time.Millisecond
	want.Concurrency = 7
	want.Progress = "tty"
	want.Pause = "never"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FlagsOverDefaults(t *testing.T) {
	cfg := config.Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse([]string{"-m", "paks.yaml", "--attempt-timeout", "30s", "--listen", "127.0.0.1:9100"}); err != nil {
		t.Fatal(err)
	}

	if err := cfg.Load(config.Sources{Flags: fs}); err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Manifest != "paks.yaml" || cfg.AttemptTimeout != 30*time.Second || cfg.Listen != "127.0.0.1:9100" {
		t.Errorf("flags not applied: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := config.Default()

	if err := cfg.Load(config.Sources{File: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, file, "concurrency: [1, 2\n")

	cfg := config.Default()
	if err := cfg.Load(config.Sources{File: file}); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	cfg := config.Default()
	cfg.Manifest = ""
	cfg.Concurrency = -1
	cfg.Hash = "crc32"
	cfg.Progress = "fancy"
	cfg.Listen = "nope"
	cfg.PollInterval = 0

	err := config.Validate(&cfg)

	var fieldErrs config.FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected FieldErrors, got %T: %v", err, err)
	}

	fields := fieldErrs.Fields()
	for _, name := range []string{"manifest", "concurrency", "hash", "progress", "listen", "poll_interval"} {
		if _, ok := fields[name]; !ok {
			t.Errorf("expected a field error for %q, got %v", name, fields)
		}
	}

	if got := fields["manifest"]; got != "This field is required" {
		t.Errorf("manifest error = %q", got)
	}
	if got := fields["hash"]; got != "must be one of: md5, sha1, sha256" {
		t.Errorf("hash error = %q", got)
	}
}

func TestConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer

	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) || !strings.Contains(out, `"app":"pakfetch"`) {
		t.Errorf("unexpected output: %s", out)
	}
}
