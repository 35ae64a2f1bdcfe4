package protocol

import (
	"sort"
	"sync"
)

// Decoder turns the raw response of a command into a structured value.
// Decoders must be pure: no side effects besides returning an error.
type Decoder func(text string, args []string) (any, error)

// Registry maps command names to decoders.
//
// A name may hold a sub-command ("get temp"); lookups try the
// two-word form before the bare command name.
type Registry struct {
	mu       sync.RWMutex
	decoders map[string]Decoder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

// Register binds decode to name, replacing any previous decoder.
func (r *Registry) Register(name string, decode Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[name] = decode
}

// Lookup finds the decoder for a parsed command. It returns the
// arguments the decoder should receive: without the sub-command word
// when a two-word decoder matched.
func (r *Registry) Lookup(name string, args []string) (Decoder, []string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(args) > 0 {
		if d, ok := r.decoders[name+" "+args[0]]; ok {
			return d, args[1:], true
		}
	}
	d, ok := r.decoders[name]
	return d, args, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.decoders))
	for name := range r.decoders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
