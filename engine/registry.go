package engine

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs an engine. It is called at most once per registration.
type Factory func() (Engine, error)

type registration struct {
	name     string
	priority int
	factory  Factory

	once sync.Once
	eng  Engine
	err  error
}

func (r *registration) get() (Engine, error) {
	r.once.Do(func() {
		r.eng, r.err = r.factory()
	})
	return r.eng, r.err
}

var globalRegistry = struct {
	mu      sync.RWMutex
	engines map[string]*registration
}{
	engines: make(map[string]*registration),
}

// Register makes an engine available under name. Higher priority engines win
// in Default. Registering a name twice replaces the earlier entry.
func Register(name string, priority int, factory Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.engines[name] = &registration{name: name, priority: priority, factory: factory}
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Engine, error) {
	globalRegistry.mu.RLock()
	r, ok := globalRegistry.engines[name]
	globalRegistry.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
	return r.get()
}

// Default returns the highest priority engine whose factory succeeds.
func Default() (Engine, error) {
	globalRegistry.mu.RLock()
	regs := make([]*registration, 0, len(globalRegistry.engines))
	for _, r := range globalRegistry.engines {
		regs = append(regs, r)
	}
	globalRegistry.mu.RUnlock()

	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].name < regs[j].name
	})

	var lastErr error
	for _, r := range regs {
		eng, err := r.get()
		if err == nil {
			return eng, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEngine, lastErr)
	}
	return nil, ErrNoEngine
}

// Names returns the registered engine names, highest priority first.
func Names() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	regs := make([]*registration, 0, len(globalRegistry.engines))
	for _, r := range globalRegistry.engines {
		regs = append(regs, r)
	}
	sort.Slice(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].name < regs[j].name
	})
	names := make([]string, len(regs))
	for i, r := range regs {
		names[i] = r.name
	}
	return names
}
