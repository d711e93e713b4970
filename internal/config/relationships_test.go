package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/domain"
)

func writeRelationships(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRelationships(t *testing.T) {
	path := writeRelationships(t, `relationships:
  - name: Everyday
    provider: manual
  - name: Home
    provider: property
    value: 650000
    loan:
      institution: Example Bank
      accountNumber: "100200300"
`)

	cfg, err := config.LoadRelationships(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Relationships) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(cfg.Relationships))
	}
	if cfg.Relationships[0].Name != "Everyday" || cfg.Relationships[0].Provider != "manual" {
		t.Errorf("unexpected first relationship: %+v", cfg.Relationships[0])
	}

	var settings struct {
		Value float64 `yaml:"value"`
		Loan  struct {
			Institution   string `yaml:"institution"`
			AccountNumber string `yaml:"accountNumber"`
		} `yaml:"loan"`
	}
	if err := cfg.Relationships[1].Decode(&settings); err != nil {
		t.Fatal(err)
	}
	if settings.Value != 650000 {
		t.Errorf("expected value 650000, got %v", settings.Value)
	}
	if settings.Loan.Institution != "Example Bank" || settings.Loan.AccountNumber != "100200300" {
		t.Errorf("unexpected loan settings: %+v", settings.Loan)
	}
}

func TestLoadRelationships_NameDefaultsToProvider(t *testing.T) {
	path := writeRelationships(t, `relationships:
  - provider: manual
`)

	cfg, err := config.LoadRelationships(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Relationships[0].Name != "manual" {
		t.Errorf("expected name to default to provider, got %q", cfg.Relationships[0].Name)
	}
}

func TestLoadRelationships_ProviderRequired(t *testing.T) {
	path := writeRelationships(t, `relationships:
  - name: Nameless
`)

	_, err := config.LoadRelationships(path)
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLoadRelationships_DuplicateNames(t *testing.T) {
	path := writeRelationships(t, `relationships:
  - name: Bank
    provider: manual
  - name: Other
    provider: manual
  - name: Bank
    provider: property
`)

	_, err := config.LoadRelationships(path)
	var dup *domain.ErrDuplicateRelationship
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicateRelationship, got %v", err)
	}
	if len(dup.Names) != 1 || dup.Names[0] != "Bank" {
		t.Errorf("expected duplicate name Bank, got %v", dup.Names)
	}
}

func TestLoadRelationships_DefaultedDuplicatesDetected(t *testing.T) {
	// Two unnamed relationships with the same provider collide after
	// name defaulting.
	path := writeRelationships(t, `relationships:
  - provider: manual
  - provider: manual
`)

	_, err := config.LoadRelationships(path)
	var dup *domain.ErrDuplicateRelationship
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicateRelationship, got %v", err)
	}
}

func TestLoadRelationships_MissingFile(t *testing.T) {
	_, err := config.LoadRelationships(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "tally init") {
		t.Errorf("missing-file error should point at `tally init`, got %q", err)
	}
}

func TestLoadRelationships_InvalidYAML(t *testing.T) {
	path := writeRelationships(t, "relationships: [whoops")

	if _, err := config.LoadRelationships(path); err == nil {
		t.Fatal("expected a parse error")
	}
}
