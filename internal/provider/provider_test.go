package provider_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tallyhq/tally/internal/domain"
	"github.com/tallyhq/tally/internal/provider"

	"go.uber.org/zap"

	_ "github.com/tallyhq/tally/internal/provider/manual"
	_ "github.com/tallyhq/tally/internal/provider/property"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := provider.New("no-such-provider", domain.ExecutionContext{}, zap.NewNop())

	var unknown *domain.ErrUnknownProvider
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if unknown.Provider != "no-such-provider" {
		t.Errorf("error should carry the provider name, got %q", unknown.Provider)
	}
}

func TestRegisteredIncludesInTreeProviders(t *testing.T) {
	names := provider.Registered()

	for _, want := range []string{"manual", "property"} {
		if !provider.IsRegistered(want) {
			t.Errorf("expected %q to be registered", want)
		}
		found := false
		for _, name := range names {
			if name == want {
				found = true
			}
		}
		if !found {
			t.Errorf("Registered() should list %q, got %v", want, names)
		}
	}
}

func TestDocumentPath(t *testing.T) {
	dir := t.TempDir()

	path, fetch := provider.DocumentPath(dir, "statement-2024-01.pdf")
	if !fetch {
		t.Error("expected fetch=true for a new document")
	}
	if path != filepath.Join(dir, "statement-2024-01.pdf") {
		t.Errorf("unexpected path %q", path)
	}

	if err := os.WriteFile(path, []byte("pdf"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, fetch := provider.DocumentPath(dir, "statement-2024-01.pdf"); fetch {
		t.Error("expected fetch=false once the document exists")
	}
}
