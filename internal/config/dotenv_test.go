package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tallyhq/tally/internal/config"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# comment line
TALLY_TEST_PLAIN=hello
export TALLY_TEST_EXPORTED=world
TALLY_TEST_QUOTED="quoted value"
TALLY_TEST_PRESET=from-file

not-a-kv-pair
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TALLY_TEST_PRESET", "from-env")
	for _, key := range []string{"TALLY_TEST_PLAIN", "TALLY_TEST_EXPORTED", "TALLY_TEST_QUOTED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}

	if got := os.Getenv("TALLY_TEST_PLAIN"); got != "hello" {
		t.Errorf("TALLY_TEST_PLAIN = %q", got)
	}
	if got := os.Getenv("TALLY_TEST_EXPORTED"); got != "world" {
		t.Errorf("TALLY_TEST_EXPORTED = %q", got)
	}
	if got := os.Getenv("TALLY_TEST_QUOTED"); got != "quoted value" {
		t.Errorf("TALLY_TEST_QUOTED = %q", got)
	}
	if got := os.Getenv("TALLY_TEST_PRESET"); got != "from-env" {
		t.Errorf("environment must win over the file, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
