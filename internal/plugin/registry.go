package plugin

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ErrNotFound is returned when no registered plugin matches a lookup.
var ErrNotFound = errors.New("plugin not found")

// Registry is the catalogue of plugins, keyed by name and version.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]map[string]Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]map[string]Plugin)}
}

// Register adds p. A second plugin with the same name and version is
// rejected.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return errors.New("cannot register nil plugin")
	}
	meta := p.Metadata()
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("invalid plugin metadata: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	versions := r.plugins[meta.Name]
	if versions == nil {
		versions = make(map[string]Plugin)
		r.plugins[meta.Name] = versions
	}
	if _, exists := versions[meta.Version]; exists {
		return fmt.Errorf("plugin %s already registered", meta)
	}
	versions[meta.Version] = p
	return nil
}

// Get returns the plugin registered as name@version.
func (r *Registry) Get(name, version string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.plugins[name][version]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s@%s", ErrNotFound, name, version)
}

// GetLatest returns the highest registered version of name.
func (r *Registry) GetLatest(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		latest string
		found  Plugin
	)
	for version, p := range r.plugins[name] {
		if found == nil || compareVersions(version, latest) > 0 {
			latest, found = version, p
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return found, nil
}

// Resolve looks a plugin up by "name" (latest version) or "name@version".
func (r *Registry) Resolve(ref string) (Plugin, error) {
	if name, version, ok := strings.Cut(ref, "@"); ok {
		return r.Get(name, version)
	}
	return r.GetLatest(ref)
}

// List returns every registered plugin ordered by name, then version.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Plugin
	for _, versions := range r.plugins {
		for _, p := range versions {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b Plugin) int {
		ma, mb := a.Metadata(), b.Metadata()
		if c := strings.Compare(ma.Name, mb.Name); c != 0 {
			return c
		}
		return compareVersions(ma.Version, mb.Version)
	})
	return out
}

// compareVersions compares dotted versions numerically, ignoring a leading
// "v". Non-numeric parts compare as strings.
func compareVersions(a, b string) int {
	pa := strings.Split(strings.TrimPrefix(a, "v"), ".")
	pb := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(pa) || i < len(pb); i++ {
		var sa, sb string
		if i < len(pa) {
			sa = pa[i]
		}
		if i < len(pb) {
			sb = pb[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		if errA == nil && errB == nil {
			if c := na - nb; c != 0 {
				return c / abs(c)
			}
			continue
		}
		if c := strings.Compare(sa, sb); c != 0 {
			return c
		}
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
