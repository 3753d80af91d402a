package editor

import (
	"sort"
	"sync"
)

// Form is the flat key/value state mirrored from the editor's controls.
// Keys written with dirty=true stay dirty until MarkClean or Reset.
type Form struct {
	mu     sync.Mutex
	values map[string]string
	dirty  map[string]bool
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{values: map[string]string{}, dirty: map[string]bool{}}
}

// SetValue implements rules.FormState.
func (f *Form) SetValue(key, value string, dirty bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	if dirty {
		f.dirty[key] = true
	}
}

// Value returns the stored value for key.
func (f *Form) Value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

// IsDirty reports whether key changed since the last MarkClean.
func (f *Form) IsDirty(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty[key]
}

// DirtyKeys returns the dirty keys, sorted.
func (f *Form) DirtyKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.dirty))
	for k := range f.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarkClean keeps values and clears every dirty flag.
func (f *Form) MarkClean() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dirty = map[string]bool{}
}

// Reset clears values and dirty flags.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = map[string]string{}
	f.dirty = map[string]bool{}
}
