package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sonaskin/storefront-backend/pkg/logger"
)

// Store holds one cart in memory and writes the full list back after every mutation.
// Two stores over the same key are last-write-wins.
type Store struct {
	mu       sync.Mutex
	items    []Item
	storage  Storage
	key      string
	hydrated bool
	logg     *logger.Logger
}

func NewStore(storage Storage, key string, logg *logger.Logger) *Store {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{storage: storage, key: key, logg: logg}
}

// Load rehydrates the cart. Unreadable payloads start an empty cart.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.hydrated = true }()

	raw, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.items = nil
			return nil
		}
		return err
	}
	items, err := decodeItems(raw)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cart_key", s.key), "cart payload unreadable, starting empty")
		s.items = nil
		return nil
	}
	s.items = sanitize(items)
	return nil
}

// Hydrated reports whether Load has completed.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// AddItem increments an existing line by qty or appends a new one. qty < 1 counts as 1.
func (s *Store) AddItem(ctx context.Context, item Item, qty int) error {
	if qty < 1 {
		qty = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity += qty
			return s.persist(ctx)
		}
	}
	item.Quantity = qty
	s.items = append(s.items, item)
	return s.persist(ctx)
}

func (s *Store) RemoveItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = filter(s.items, map[string]struct{}{id: {}})
	return s.persist(ctx)
}

// UpdateQuantity sets the line quantity. qty <= 0 removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qty <= 0 {
		s.items = filter(s.items, map[string]struct{}{id: {}})
		return s.persist(ctx)
	}
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Quantity = qty
		}
	}
	return s.persist(ctx)
}

func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	return s.persist(ctx)
}

// RemoveItems drops every line whose id is listed.
func (s *Store) RemoveItems(ctx context.Context, ids []string) error {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = filter(s.items, drop)
	return s.persist(ctx)
}

func (s *Store) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, item := range s.items {
		total += item.Quantity
	}
	return total
}

func (s *Store) TotalPrice() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, item := range s.items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Items returns a copy of the current lines.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// persist must be called with mu held.
func (s *Store) persist(ctx context.Context) error {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.storage.Save(ctx, s.key, raw)
}

func filter(items []Item, drop map[string]struct{}) []Item {
	out := items[:0:0]
	for _, item := range items {
		if _, ok := drop[item.ID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// sanitize drops lines a stale or hand-edited payload may carry.
func sanitize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	seen := map[string]int{}
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if idx, ok := seen[item.ID]; ok {
			out[idx].Quantity += item.Quantity
			continue
		}
		seen[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}
