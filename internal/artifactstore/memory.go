package artifactstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is a Store that lives for one process. Records are copied on the
// way in and out.
type Memory struct {
	records sync.Map // Key: graph id, Value: Record
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) Get(_ context.Context, graphID string) (*Record, error) {
	v, ok := m.records.Load(graphID)
	if !ok {
		return nil, fmt.Errorf("graph %s: %w", graphID, ErrNotFound)
	}
	r := v.(Record)
	return &r, nil
}

func (m *Memory) Put(_ context.Context, r *Record) error {
	if r == nil || r.GraphID == "" {
		return fmt.Errorf("record needs a graph id")
	}
	cp := *r
	cp.Stored = m.now().UTC()
	m.records.Store(r.GraphID, cp)
	r.Stored = cp.Stored
	return nil
}

func (m *Memory) List(_ context.Context) ([]*Record, error) {
	var out []*Record
	m.records.Range(func(_, v any) bool {
		r := v.(Record)
		out = append(out, &r)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].GraphID < out[j].GraphID })
	return out, nil
}

func (m *Memory) Delete(_ context.Context, graphID string) error {
	if _, ok := m.records.LoadAndDelete(graphID); !ok {
		return fmt.Errorf("graph %s: %w", graphID, ErrNotFound)
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
