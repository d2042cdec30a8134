package label

import (
	"strings"
	"sync"
	"time"

	"github.com/canvasflow/canvasflow/internal/types"
)

// StoreKind identifies which of the three label stores an instance is.
type StoreKind string

const (
	// KindInput holds uploaded input files.
	KindInput StoreKind = "input"
	// KindText holds derived text files (auto-generated on upload or
	// produced by node output generation).
	KindText StoreKind = "text"
	// KindOutput holds labels promoted to final deliverables.
	KindOutput StoreKind = "output"
)

// String returns the string representation of the store kind.
func (k StoreKind) String() string {
	return string(k)
}

// ProducerUpload is the sentinel producer id recorded on files that were
// auto-generated during upload rather than by a node.
const ProducerUpload = "upload"

// File is a single record in a label store.
type File struct {
	// Label is the file's stable identifier, e.g. "A.pdf" or "AB-sum.txt".
	Label string `json:"label"`

	// DisplayName is the human-facing name. For uploads this is the original
	// filename; for promoted outputs it is the business-facing rename.
	DisplayName string `json:"display_name,omitempty"`

	// Sources lists the labels this file was derived from. Empty for uploads.
	Sources []string `json:"sources,omitempty"`

	// Producer is the id of the node that generated this file, or
	// ProducerUpload for files created during upload.
	Producer string `json:"producer,omitempty"`

	// Visible controls transient filtering in listings.
	Visible bool `json:"visible"`

	CreatedAt time.Time `json:"created_at"`
}

// Base returns the label stripped of its extension: "AB-sum.txt" -> "AB-sum".
func Base(lbl string) string {
	if i := strings.LastIndex(lbl, "."); i > 0 {
		return lbl[:i]
	}
	return lbl
}

// Ext returns the label's extension including the dot, or "" if none.
func Ext(lbl string) string {
	if i := strings.LastIndex(lbl, "."); i > 0 {
		return lbl[i:]
	}
	return ""
}

// Store is one label store instance. All methods are safe for concurrent use,
// though in practice there is a single logical writer at a time.
type Store struct {
	kind StoreKind

	mu       sync.RWMutex
	files    map[string]*File
	order    []string
	onChange func()
}

// NewStore creates an empty store of the given kind.
func NewStore(kind StoreKind) *Store {
	return &Store{
		kind:  kind,
		files: make(map[string]*File),
	}
}

// Kind returns which of the three stores this is.
func (s *Store) Kind() StoreKind {
	return s.kind
}

// SetNotify registers a hook invoked after every successful mutation.
// The connection layer and panels use this to refresh their views.
func (s *Store) SetNotify(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Add inserts a file record. The label must be unique within this store.
func (s *Store) Add(f File) error {
	s.mu.Lock()

	if f.Label == "" {
		s.mu.Unlock()
		return types.NewError(types.LABEL_CONFLICT, "file label cannot be empty")
	}
	if _, exists := s.files[f.Label]; exists {
		s.mu.Unlock()
		return types.NewErrorf(types.LABEL_CONFLICT, "label %s already exists in %s store", f.Label, s.kind)
	}

	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	copied := f
	s.files[f.Label] = &copied
	s.order = append(s.order, f.Label)
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// Remove deletes the record for the given label.
// Returns false if the label is not present.
func (s *Store) Remove(lbl string) bool {
	s.mu.Lock()

	if _, exists := s.files[lbl]; !exists {
		s.mu.Unlock()
		return false
	}

	delete(s.files, lbl)
	for i, l := range s.order {
		if l == lbl {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
	return true
}

// HasLabel reports whether the label exists in this store.
func (s *Store) HasLabel(lbl string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[lbl]
	return ok
}

// Get returns the record for the given label.
func (s *Store) Get(lbl string) (File, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[lbl]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// GetAll returns all records in insertion order.
func (s *Store) GetAll() []File {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]File, 0, len(s.order))
	for _, lbl := range s.order {
		out = append(out, *s.files[lbl])
	}
	return out
}

// Len returns the number of records in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// SetVisible updates the visibility flag on a record.
func (s *Store) SetVisible(lbl string, visible bool) bool {
	s.mu.Lock()
	f, ok := s.files[lbl]
	if ok {
		f.Visible = visible
	}
	notify := s.onChange
	s.mu.Unlock()

	if ok && notify != nil {
		notify()
	}
	return ok
}

// Clear removes every record. Used when the canvas is reset; the label
// sequence is reset alongside it by the owning controller.
func (s *Store) Clear() {
	s.mu.Lock()
	s.files = make(map[string]*File)
	s.order = nil
	notify := s.onChange
	s.mu.Unlock()

	if notify != nil {
		notify()
	}
}
