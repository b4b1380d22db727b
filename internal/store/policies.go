package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonathan/company-updater/internal/types"
)

// Policies reads and writes the update policy document (update-config.json).
// Writes go through a mutex so concurrent single-company runs do not drop each other's stamps.
type Policies struct {
	path string
	mu   sync.Mutex
}

// NewPolicies returns a policy store backed by the file at path.
func NewPolicies(path string) *Policies {
	return &Policies{path: path}
}

// Path returns the policy file path.
func (p *Policies) Path() string {
	return p.path
}

// Load reads the policy document. Entries are not validated here; a bad
// entry must not hide the rest of the document (see UpdateConfig.Usable).
func (p *Policies) Load() (*types.UpdateConfig, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.load()
}

// Save writes the whole policy document.
func (p *Policies) Save(cfg *types.UpdateConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.save(cfg)
}

// MarkUpdated sets lastUpdated for slug and persists the document.
// The file is re-read under the lock so edits made since the run started are kept.
func (p *Policies) MarkUpdated(slug string, at time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := p.load()
	if err != nil {
		return err
	}
	policy, ok := cfg.Find(slug)
	if !ok {
		return fmt.Errorf("policy for %q disappeared before it could be stamped", slug)
	}
	policy.LastUpdated = types.NewTimestamp(at)
	return p.save(cfg)
}

func (p *Policies) load() (*types.UpdateConfig, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: p.path, Cause: err}
	}
	var cfg types.UpdateConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &IOError{Op: "decode", Path: p.path, Cause: err}
	}
	if cfg.Companies == nil {
		cfg.Companies = []types.UpdatePolicy{}
	}
	return &cfg, nil
}

func (p *Policies) save(cfg *types.UpdateConfig) error {
	data, err := encodeJSON(cfg)
	if err != nil {
		return &IOError{Op: "encode", Path: p.path, Cause: err}
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return &IOError{Op: "write", Path: p.path, Cause: err}
	}
	return writeFileAtomic(p.path, data)
}
