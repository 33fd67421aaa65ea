package pools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default strategy parameters, applied when a pool omits them.
const (
	DefaultScoreWindow = 20
	DefaultMAWindow    = 28
	DefaultTopN        = 2
)

// DefaultBiasWindows are the MA windows (in bars) used for the deviation
// readout, shortest first.
var DefaultBiasWindows = []int{6, 12, 24}

// SymbolEntry maps an exchange code to its display name. Order in the
// YAML file is preserved and used as the final ranking tie-break domain.
type SymbolEntry struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Pool is one rotation universe with its strategy parameters.
type Pool struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Symbols     []SymbolEntry `yaml:"symbols"`

	MomentumWindows []int `yaml:"momentum_windows"`
	ScoreWindow     int   `yaml:"score_window"`
	MAWindow        int   `yaml:"ma_window"`
	BiasWindows     []int `yaml:"bias_windows"`
	TopN            int   `yaml:"top_n"`

	// TrendFilter restricts hold candidates to symbols trading above
	// their MA. Defaults to true when omitted.
	TrendFilter *bool `yaml:"trend_filter"`
}

// File is the on-disk shape of the pools config.
type File struct {
	Pools []Pool `yaml:"pools"`
}

// Registry holds the loaded pools keyed by ID, preserving file order.
type Registry struct {
	pools map[string]*Pool
	order []string
}

// Load reads and validates the pools file at path.
// SSOT: pool and strategy parameters come from this file and nowhere else.
func Load(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pools file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse pools file %s: %w", path, err)
	}

	reg := &Registry{pools: make(map[string]*Pool)}
	for i := range file.Pools {
		p := &file.Pools[i]
		p.applyDefaults()
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("pools file %s: %w", path, err)
		}
		if _, dup := reg.pools[p.ID]; dup {
			return nil, fmt.Errorf("pools file %s: duplicate pool id %q", path, p.ID)
		}
		reg.pools[p.ID] = p
		reg.order = append(reg.order, p.ID)
	}

	if len(reg.order) == 0 {
		return nil, fmt.Errorf("pools file %s: no pools defined", path)
	}
	return reg, nil
}

func (p *Pool) applyDefaults() {
	if len(p.MomentumWindows) == 0 {
		p.MomentumWindows = []int{DefaultScoreWindow}
	}
	if p.ScoreWindow == 0 {
		p.ScoreWindow = p.MomentumWindows[0]
	}
	if p.MAWindow == 0 {
		p.MAWindow = DefaultMAWindow
	}
	if len(p.BiasWindows) == 0 {
		p.BiasWindows = append([]int(nil), DefaultBiasWindows...)
	}
	if p.TopN == 0 {
		p.TopN = DefaultTopN
	}
	if p.TrendFilter == nil {
		t := true
		p.TrendFilter = &t
	}
}

func (p *Pool) validate() error {
	if p.ID == "" {
		return fmt.Errorf("pool with empty id")
	}
	if p.Name == "" {
		return fmt.Errorf("pool %q: empty name", p.ID)
	}
	if len(p.Symbols) == 0 {
		return fmt.Errorf("pool %q: no symbols", p.ID)
	}

	seen := make(map[string]bool, len(p.Symbols))
	for _, s := range p.Symbols {
		if s.Code == "" {
			return fmt.Errorf("pool %q: symbol with empty code", p.ID)
		}
		if seen[s.Code] {
			return fmt.Errorf("pool %q: duplicate symbol %s", p.ID, s.Code)
		}
		seen[s.Code] = true
	}

	for _, w := range p.MomentumWindows {
		if w <= 0 {
			return fmt.Errorf("pool %q: momentum window must be positive, got %d", p.ID, w)
		}
	}
	scoreOK := false
	for _, w := range p.MomentumWindows {
		if w == p.ScoreWindow {
			scoreOK = true
		}
	}
	if !scoreOK {
		return fmt.Errorf("pool %q: score_window %d not in momentum_windows", p.ID, p.ScoreWindow)
	}

	if p.MAWindow <= 0 {
		return fmt.Errorf("pool %q: ma_window must be positive, got %d", p.ID, p.MAWindow)
	}
	for _, w := range p.BiasWindows {
		if w <= 0 {
			return fmt.Errorf("pool %q: bias window must be positive, got %d", p.ID, w)
		}
	}
	if p.TopN < 1 {
		return fmt.Errorf("pool %q: top_n must be at least 1, got %d", p.ID, p.TopN)
	}
	return nil
}

// Get returns the pool with the given ID.
func (r *Registry) Get(id string) (*Pool, bool) {
	p, ok := r.pools[id]
	return p, ok
}

// All returns the pools in file order.
func (r *Registry) All() []*Pool {
	out := make([]*Pool, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.pools[id])
	}
	return out
}

// SymbolName returns the display name for code, falling back to the code
// itself when the pool does not name it.
func (p *Pool) SymbolName(code string) string {
	for _, s := range p.Symbols {
		if s.Code == code {
			return s.Name
		}
	}
	return code
}

// TrendFilterEnabled resolves the pointer flag.
func (p *Pool) TrendFilterEnabled() bool {
	return p.TrendFilter == nil || *p.TrendFilter
}
