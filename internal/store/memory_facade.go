package store

import (
	"context"
	"sync"

	"github.com/cogmem/cogmem/internal/errs"
)

// MemoryFacade is an in-process Facade over per-table maps guarded by one
// facade-wide mutex. It is the default runtime backend: the corpus
// consistently favors embedded, zero-ops storage over a network database,
// and the single mutex serializes every operation, which gives per-key
// serializability directly.
type MemoryFacade struct {
	mu     sync.Mutex
	tables map[Table]map[string]Record
}

// NewMemoryFacade creates an empty MemoryFacade.
func NewMemoryFacade() *MemoryFacade {
	return &MemoryFacade{tables: make(map[Table]map[string]Record)}
}

func (f *MemoryFacade) tableFor(t Table) map[string]Record {
	tbl, ok := f.tables[t]
	if !ok {
		tbl = make(map[string]Record)
		f.tables[t] = tbl
	}
	return tbl
}

// Create inserts rec at (table, id), failing if id is already present.
func (f *MemoryFacade) Create(_ context.Context, table Table, id string, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tbl := f.tableFor(table)
	if _, exists := tbl[id]; exists {
		return errs.AlreadyExists(string(table), id)
	}
	tbl[id] = cloneRecord(rec)
	return nil
}

// Get returns the record at (table, id).
func (f *MemoryFacade) Get(_ context.Context, table Table, id string) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tbl := f.tableFor(table)
	rec, ok := tbl[id]
	if !ok {
		return nil, errs.NotFound(string(table), id)
	}
	return cloneRecord(rec), nil
}

// Update replaces the record at (table, id), failing if absent.
func (f *MemoryFacade) Update(_ context.Context, table Table, id string, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tbl := f.tableFor(table)
	if _, exists := tbl[id]; !exists {
		return errs.NotFound(string(table), id)
	}
	tbl[id] = cloneRecord(rec)
	return nil
}

// Delete removes the record at (table, id). Deletion is idempotent.
func (f *MemoryFacade) Delete(_ context.Context, table Table, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.tableFor(table), id)
	return nil
}

// Query returns up to limit records in table matching pred. limit<=0 means
// unbounded.
func (f *MemoryFacade) Query(_ context.Context, table Table, pred Predicate, limit int) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tbl := f.tableFor(table)
	out := make([]Record, 0)
	for _, rec := range tbl {
		if !pred.Match(rec) {
			continue
		}
		out = append(out, cloneRecord(rec))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// BulkApply applies ops under a single mutex hold, so the operation set is
// observed all-or-nothing: either every op commits or, on the first
// failure, none of the preceding ops in the same call are retained.
func (f *MemoryFacade) BulkApply(_ context.Context, ops []Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Snapshot every touched table so a mid-batch failure can be rolled
	// back without leaving partial mutations visible.
	touched := make(map[Table]map[string]Record)
	for _, op := range ops {
		if _, ok := touched[op.Table]; !ok {
			orig := f.tableFor(op.Table)
			snap := make(map[string]Record, len(orig))
			for k, v := range orig {
				snap[k] = v
			}
			touched[op.Table] = snap
		}
	}

	apply := func(op Operation) error {
		tbl := f.tableFor(op.Table)
		switch op.Kind {
		case OpCreate:
			if _, exists := tbl[op.ID]; exists {
				return errs.AlreadyExists(string(op.Table), op.ID)
			}
			tbl[op.ID] = cloneRecord(op.Record)
		case OpUpdate:
			if _, exists := tbl[op.ID]; !exists {
				return errs.NotFound(string(op.Table), op.ID)
			}
			tbl[op.ID] = cloneRecord(op.Record)
		case OpDelete:
			delete(tbl, op.ID)
		}
		return nil
	}

	for _, op := range ops {
		if err := apply(op); err != nil {
			for table, snap := range touched {
				f.tables[table] = snap
			}
			return err
		}
	}
	return nil
}

// Close is a no-op for MemoryFacade; there is no external resource to
// release.
func (f *MemoryFacade) Close() error { return nil }

var _ Facade = (*MemoryFacade)(nil)
