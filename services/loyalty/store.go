package loyalty

import (
	"context"
	"sync"
)

// Store persists customer loyalty records. Update runs fn on a private copy
// under per-customer mutual exclusion and saves it only when fn succeeds.
type Store interface {
	Load(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Save(ctx context.Context, c *Customer) error
	Update(ctx context.Context, id string, fn func(c *Customer) error) (*Customer, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// MemoryStore keeps records in process. Records are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Customer
	locks   keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Customer)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.records[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, c *Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; ok {
		return ErrCustomerExists
	}
	s.records[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Save(_ context.Context, c *Customer) error {
	unlock := s.locks.Lock(c.ID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(c *Customer) error) (*Customer, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.records[id] = c.Clone()
	s.mu.Unlock()
	return c, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrCustomerNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}
