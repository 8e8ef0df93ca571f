// Package langsupport is the registry of per-language diagnostic providers.
// A provider contributes the diagnostic rule table and the stack-frame
// heuristics for one language. Zero or one provider is registered per
// language id; absence of a provider is a normal state, not an error — the
// pipeline then classifies everything as "other" and skips no frames.
package langsupport

import (
	"sort"
	"sync"

	"github.com/mlinna/devlog/internal/normalize"
)

// Provider supplies language-specific knowledge to the pipeline.
type Provider interface {
	// Lang returns the language id this provider handles, e.g. "java".
	Lang() string

	// DiagnosticRules returns the ordered compile-diagnostic rule table.
	// More specific rules must precede the general rules they overlap with.
	DiagnosticRules() []normalize.Rule

	// SystemPrefixes returns class-path prefixes identifying standard
	// library frames, e.g. "java.", "sun.".
	SystemPrefixes() []string

	// RuntimeModuleMarkers returns substrings identifying runtime-module
	// frames, e.g. "java.base/".
	RuntimeModuleMarkers() []string
}

var (
	mu       sync.RWMutex
	registry = map[string]Provider{}
)

// Register installs a provider under its language id. Called from provider
// package init; a second registration for the same id replaces the first.
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Lang()] = p
}

// Lookup returns the provider for the language id, if one is registered.
func Lookup(lang string) (Provider, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[lang]
	return p, ok
}

// Langs returns the registered language ids, sorted.
func Langs() []string {
	mu.RLock()
	defer mu.RUnlock()
	langs := make([]string, 0, len(registry))
	for lang := range registry {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
