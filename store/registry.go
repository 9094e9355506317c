package store

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/chzchzchz/corrvis/scan"
)

var ErrNoWindow = errors.New("no such window in options")

// Registry holds one Options entry per distinct band setup. Lookups take a
// read lock; creating an entry or editing modifiers takes the write lock.
type Registry struct {
	entries []*Options
	rwmu    sync.RWMutex
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Len() int {
	r.rwmu.RLock()
	defer r.rwmu.RUnlock()
	return len(r.entries)
}

// Entries returns the registered options in creation order.
func (r *Registry) Entries() []*Options {
	r.rwmu.RLock()
	ret := make([]*Options, len(r.entries))
	copy(ret, r.entries)
	r.rwmu.RUnlock()
	return ret
}

// Find returns the entry whose window triples match the header.
func (r *Registry) Find(h *scan.Header) (*Options, bool) {
	r.rwmu.RLock()
	defer r.rwmu.RUnlock()
	return r.find(h)
}

func (r *Registry) find(h *scan.Header) (*Options, bool) {
	for _, o := range r.entries {
		if o.MatchesHeader(h) {
			return o, true
		}
	}
	return nil, false
}

// FindOrCreate returns the matching entry, appending a freshly seeded one
// when the band setup has not been seen before.
func (r *Registry) FindOrCreate(h *scan.Header) *Options {
	if o, ok := r.Find(h); ok {
		return o
	}
	r.rwmu.Lock()
	defer r.rwmu.Unlock()
	if o, ok := r.find(h); ok {
		return o
	}
	o := NewOptions(h)
	r.entries = append(r.entries, o)
	return o
}

// Add registers options, replacing any entry with the same band setup.
func (r *Registry) Add(o *Options) {
	r.rwmu.Lock()
	defer r.rwmu.Unlock()
	for i, e := range r.entries {
		if sameSetup(e, o) {
			r.entries[i] = o
			return
		}
	}
	r.entries = append(r.entries, o)
}

func sameSetup(a, b *Options) bool {
	if len(a.Windows) != len(b.Windows) {
		return false
	}
	for i := range a.Windows {
		if !a.Windows[i].Band.Same(b.Windows[i].Band) || a.Windows[i].NChannels != b.Windows[i].NChannels {
			return false
		}
	}
	return true
}

// Equal compares two registries entry by entry.
func (r *Registry) Equal(o *Registry) bool {
	a, b := r.Entries(), o.Entries()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// AddModifier appends a modifier to one window of the header's entry.
func (r *Registry) AddModifier(h *scan.Header, label int, m Modifier) error {
	o := r.FindOrCreate(h)
	r.rwmu.Lock()
	defer r.rwmu.Unlock()
	w := o.Window(label)
	if w == nil {
		return fmt.Errorf("%w: %d", ErrNoWindow, label)
	}
	w.Modifiers = append(w.Modifiers, m)
	return nil
}

// RemoveModifier deletes the i-th modifier of a window.
func (r *Registry) RemoveModifier(h *scan.Header, label, i int) error {
	o, ok := r.Find(h)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoWindow, label)
	}
	r.rwmu.Lock()
	defer r.rwmu.Unlock()
	w := o.Window(label)
	if w == nil {
		return fmt.Errorf("%w: %d", ErrNoWindow, label)
	}
	if i < 0 || i >= len(w.Modifiers) {
		return fmt.Errorf("modifier %d out of range (%d)", i, len(w.Modifiers))
	}
	w.Modifiers = append(w.Modifiers[:i], w.Modifiers[i+1:]...)
	return nil
}

// Snapshot returns a deep copy of the header's entry taken under the read
// lock, creating the entry first if needed.
func (r *Registry) Snapshot(h *scan.Header) *Options {
	o := r.FindOrCreate(h)
	r.rwmu.RLock()
	defer r.rwmu.RUnlock()
	return o.Clone()
}

// Load replaces the registry with a gob cache written by Save.
func (r *Registry) Load(fpath string) error {
	f, err := os.Open(fpath)
	if err != nil {
		return err
	}
	defer f.Close()
	var entries []*Options
	if err := gob.NewDecoder(f).Decode(&entries); err != nil {
		return err
	}
	r.rwmu.Lock()
	r.entries = entries
	r.rwmu.Unlock()
	return nil
}

func (r *Registry) Save(fpath string) error {
	f, err := os.OpenFile(fpath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	r.rwmu.RLock()
	defer r.rwmu.RUnlock()
	return gob.NewEncoder(f).Encode(r.entries)
}
