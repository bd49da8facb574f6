package datastore

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Verb identifies a store operation. The set is closed on purpose: the
// tenancy guard classifies operations by verb and fails closed on anything
// it does not recognize.
type Verb string

const (
	VerbFindMany   Verb = "findMany"
	VerbCreate     Verb = "create"
	VerbCreateMany Verb = "createMany"
	VerbUpdateMany Verb = "updateMany"
	VerbDeleteMany Verb = "deleteMany"
	VerbGet        Verb = "get"
	VerbUpdate     Verb = "update"
	VerbDelete     Verb = "delete"
)

// Record is a single row in a collection. Every record gets an "id" field
// assigned on create if the caller did not supply one.
type Record map[string]any

// Filter matches records by field equality. A nil filter matches everything.
type Filter map[string]any

// Operation describes one store call. Which fields are meaningful depends
// on the verb.
type Operation struct {
	Verb       Verb
	Collection string
	ID         string  // get/update/delete
	Filter     Filter  // findMany/updateMany/deleteMany
	Data       Record  // create/update/updateMany
	Records    []Record // createMany
}

// Result carries the outcome of an operation.
type Result struct {
	Records []Record
	Count   int
}

var ErrNotFound = fmt.Errorf("datastore: record not found")

// Store is an in-process collection store. All access goes through Apply so
// a wrapper can intercept and rewrite operations before they execute.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]Record)}
}

// Apply executes a single operation.
func (s *Store) Apply(op Operation) (*Result, error) {
	switch op.Verb {
	case VerbFindMany:
		return s.findMany(op)
	case VerbCreate:
		return s.create(op)
	case VerbCreateMany:
		return s.createMany(op)
	case VerbUpdateMany:
		return s.updateMany(op)
	case VerbDeleteMany:
		return s.deleteMany(op)
	case VerbGet:
		return s.get(op)
	case VerbUpdate:
		return s.update(op)
	case VerbDelete:
		return s.delete(op)
	default:
		return nil, fmt.Errorf("datastore: unknown verb %q", op.Verb)
	}
}

func (s *Store) findMany(op Operation) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.collections[op.Collection] {
		if matches(rec, op.Filter) {
			out = append(out, clone(rec))
		}
	}
	return &Result{Records: out, Count: len(out)}, nil
}

func (s *Store) create(op Operation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := clone(op.Data)
	if _, ok := rec["id"]; !ok {
		rec["id"] = uuid.New().String()
	}
	s.collections[op.Collection] = append(s.collections[op.Collection], rec)
	return &Result{Records: []Record{clone(rec)}, Count: 1}, nil
}

func (s *Store) createMany(op Operation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]Record, 0, len(op.Records))
	for _, data := range op.Records {
		rec := clone(data)
		if _, ok := rec["id"]; !ok {
			rec["id"] = uuid.New().String()
		}
		s.collections[op.Collection] = append(s.collections[op.Collection], rec)
		created = append(created, clone(rec))
	}
	return &Result{Records: created, Count: len(created)}, nil
}

func (s *Store) updateMany(op Operation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.collections[op.Collection] {
		if matches(rec, op.Filter) {
			for k, v := range op.Data {
				rec[k] = v
			}
			count++
		}
	}
	return &Result{Count: count}, nil
}

func (s *Store) deleteMany(op Operation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.collections[op.Collection][:0]
	count := 0
	for _, rec := range s.collections[op.Collection] {
		if matches(rec, op.Filter) {
			count++
			continue
		}
		kept = append(kept, rec)
	}
	s.collections[op.Collection] = kept
	return &Result{Count: count}, nil
}

func (s *Store) get(op Operation) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.collections[op.Collection] {
		if rec["id"] == op.ID {
			return &Result{Records: []Record{clone(rec)}, Count: 1}, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) update(op Operation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.collections[op.Collection] {
		if rec["id"] == op.ID {
			for k, v := range op.Data {
				rec[k] = v
			}
			return &Result{Records: []Record{clone(rec)}, Count: 1}, nil
		}
	}
	return nil, ErrNotFound
}

func (s *Store) delete(op Operation) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.collections[op.Collection]
	for i, rec := range recs {
		if rec["id"] == op.ID {
			s.collections[op.Collection] = append(recs[:i], recs[i+1:]...)
			return &Result{Count: 1}, nil
		}
	}
	return nil, ErrNotFound
}

func matches(rec Record, f Filter) bool {
	for k, want := range f {
		if rec[k] != want {
			return false
		}
	}
	return true
}

func clone(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
