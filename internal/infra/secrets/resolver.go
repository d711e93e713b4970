// Package secrets resolves provider credentials through a chain selected
// once at startup: a headless static secret file takes precedence when
// present on disk; otherwise lookups go to an encrypted vault with an
// interactive prompt filling misses. Providers only ever see the
// port.SecretStore interface and never learn which backend served a value.
package secrets

import (
	"os"

	"github.com/tallyhq/tally/internal/port"

	"go.uber.org/zap"
)

// PromptFunc asks the interactive user for a value. The text identifies
// what is being asked for; the answer is returned verbatim.
type PromptFunc func(text string) (string, error)

// NewResolver probes the environment once and returns the secret store for
// this process. The choice is fixed for the process lifetime.
func NewResolver(headlessPath, vaultPath string, prompt PromptFunc, logger *zap.Logger) (port.SecretStore, error) {
	if _, err := os.Stat(headlessPath); err == nil {
		logger.Warn("found a headless secret file; serving ALL secrets from it — only use this in totally headless scenarios",
			zap.String("path", headlessPath),
		)
		return NewHeadless(headlessPath, logger)
	}

	return &hinted{
		store:        NewVault(vaultPath, prompt, logger),
		headlessPath: headlessPath,
		logger:       logger,
	}, nil
}

// hinted wraps the vault and, on failure, tells the user how to provision
// secrets on headless systems where no prompt can appear.
type hinted struct {
	store        port.SecretStore
	headlessPath string
	logger       *zap.Logger
}

func (h *hinted) RetrieveSecret(key string) (string, error) {
	value, err := h.store.RetrieveSecret(key)
	if err != nil {
		h.hint()
	}
	return value, err
}

func (h *hinted) StoreSecret(key, value string) error {
	err := h.store.StoreSecret(key, value)
	if err != nil {
		h.hint()
	}
	return err
}

func (h *hinted) hint() {
	h.logger.Info("on headless systems, create a secret file and re-run",
		zap.String("path", h.headlessPath),
	)
}
