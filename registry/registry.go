// Package registry loads test-case definitions from a suite file and serves
// them as a read-only lookup to the run coordinator.
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/parabank-qa/acceptor/types"
)

// Config contains registry configuration.
type Config struct {
	Log log.Logger

	// SuiteFile is the YAML file holding the test-case definitions.
	SuiteFile string

	// DefaultTimeout is applied to test cases that carry none.
	DefaultTimeout time.Duration
}

// suiteFile is the on-disk shape of a suite definition.
type suiteFile struct {
	Tests []types.TestCase `yaml:"tests"`
}

// Registry is the test-case store. It is loaded once at construction and
// read-only afterwards.
type Registry struct {
	cfg Config

	mu    sync.RWMutex
	order []string
	cases map[string]types.TestCase
}

// NewRegistry creates a registry from a suite file.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.SuiteFile == "" {
		return nil, fmt.Errorf("suite file is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		cfg:   cfg,
		cases: make(map[string]types.TestCase),
	}
	if err := r.load(cfg.SuiteFile); err != nil {
		return nil, fmt.Errorf("failed to load suite: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "suite", cfg.SuiteFile, "len(cases)", len(r.cases))
	return r, nil
}

func (r *Registry) load(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read suite file %s: %w", path, err)
	}

	var suite suiteFile
	if err := yaml.Unmarshal(raw, &suite); err != nil {
		return fmt.Errorf("failed to parse suite file %s: %w", path, err)
	}
	if len(suite.Tests) == 0 {
		return fmt.Errorf("suite file %s contains no test cases", path)
	}

	for _, tc := range suite.Tests {
		if err := tc.Validate(); err != nil {
			return err
		}
		if _, exists := r.cases[tc.ID]; exists {
			return fmt.Errorf("duplicate test case id %q", tc.ID)
		}
		if tc.Timeout <= 0 {
			tc.Timeout = r.cfg.DefaultTimeout
		}
		r.cases[tc.ID] = tc
		r.order = append(r.order, tc.ID)
	}
	return nil
}

// Get returns the test case for an id. Implements runner.Store.
func (r *Registry) Get(id string) (types.TestCase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tc, ok := r.cases[id]
	if !ok {
		return types.TestCase{}, fmt.Errorf("unknown test case %q", id)
	}
	return tc, nil
}

// IDs returns all test-case ids in suite-file order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of loaded test cases.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
