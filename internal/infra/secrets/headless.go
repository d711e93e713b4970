package secrets

import (
	"fmt"
	"os"

	"github.com/tallyhq/tally/internal/domain"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// headlessFile is the on-disk shape of the static secret file:
//
//	secrets:
//	  - key: "My Bank:username"
//	    value: "jane"
type headlessFile struct {
	Secrets []struct {
		Key   string `yaml:"key"`
		Value string `yaml:"value"`
	} `yaml:"secrets"`
}

// Headless serves every lookup from a static file loaded once at startup.
// It never prompts: a key absent from the file is a hard miss, and store
// requests are discarded because there is no interactive user to confirm
// persisting anything.
type Headless struct {
	data   map[string]string
	logger *zap.Logger
}

// NewHeadless loads the secret file at path.
func NewHeadless(path string, logger *zap.Logger) (*Headless, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file headlessFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parsing headless secrets %s: %w", path, err)
	}

	data := make(map[string]string, len(file.Secrets))
	for _, s := range file.Secrets {
		data[s.Key] = s.Value
	}
	return &Headless{data: data, logger: logger}, nil
}

func (h *Headless) RetrieveSecret(key string) (string, error) {
	value, ok := h.data[key]
	if !ok {
		return "", &domain.ErrSecretNotFound{Key: key}
	}
	return value, nil
}

func (h *Headless) StoreSecret(key, _ string) error {
	h.logger.Warn("asked to persist a secret; ignoring because we're in headless mode",
		zap.String("key", key),
	)
	return nil
}
