package export

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyperjump/tally/internal/models"
)

// memStore is an in-memory RecordReader that evaluates predicates field by field.
type memStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	counts  int
	fetches int
}

var errNotFound = errors.New("not found")

func newMemStore(users ...*models.User) *memStore {
	m := &memStore{users: make(map[int64]*models.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memStore) FetchByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, errNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CountMatching(_ context.Context, p models.Predicate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts++
	var n int64
	for _, u := range m.users {
		fields := u.Fields()
		match := true
		for _, c := range p {
			v, ok := fields.Get(c.Field)
			if !ok || v != c.Value {
				match = false
				break
			}
		}
		if match {
			n++
		}
	}
	return n, nil
}

func (m *memStore) put(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// recordingArtifacts captures deposits.
type recordingArtifacts struct {
	mu    sync.Mutex
	calls int
	saved map[string][]byte
	err   error
}

func (r *recordingArtifacts) Store(_ context.Context, name string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	if r.saved == nil {
		r.saved = make(map[string][]byte)
	}
	r.saved[name] = data
	return nil
}

// captureEncoder records the sheets it was handed.
type captureEncoder struct {
	calls  int
	sheets []*models.Worksheet
	err    error
}

func (c *captureEncoder) Encode(sheets []*models.Worksheet) ([]byte, error) {
	c.calls++
	c.sheets = sheets
	if c.err != nil {
		return nil, c.err
	}
	return []byte(fmt.Sprintf("%d sheets", len(sheets))), nil
}

func aliceAndBob() []*models.User {
	return []*models.User{
		{ID: 1, Name: "Alice", Email: "a@x.com"},
		{ID: 2, Name: "Bob", Email: "b@x.com"},
	}
}

func newTestAssembler(store RecordReader) *Assembler {
	return NewAssembler(
		store,
		models.DefaultUserLabels(),
		NewPreparer(AppendSuffix(models.FieldName, " {prepared}")),
		"Users",
		FlagColumn("Failed Users Count", "delta.botsford@example.org"),
	)
}
