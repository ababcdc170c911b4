// Package store is the process-local cache behind a dashboard: keyed entity
// collections mutated through Replace, Upsert and Remove.
package store

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"salun/internal/domain"
)

// Name identifies a collection.
type Name string

const (
	Users         Name = "users"
	Barcodes      Name = "barcodes"
	Ranges        Name = "barcodeRanges"
	Rewards       Name = "rewards"
	Redemptions   Name = "redemptions"
	Notifications Name = "notifications"
	History       Name = "history"
)

// AllNames lists every collection a dashboard may hold.
var AllNames = []Name{Users, Barcodes, Ranges, Rewards, Redemptions, Notifications, History}

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrMissingID         = errors.New("entity has no id")
	ErrStale             = errors.New("replace is older than the collection state")
)

// Op is the kind of a Mutation.
type Op int

const (
	OpReplace Op = iota
	OpUpsert
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpReplace:
		return "replace"
	case OpUpsert:
		return "upsert"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Mutation is one change to a collection. Seq orders mutations; a Replace
// stamped before the last Upsert or Remove it would overwrite is rejected.
type Mutation struct {
	Collection Name
	Op         Op
	Seq        uint64
	Items      []Entity // OpReplace
	Item       Entity   // OpUpsert
	ID         string   // OpRemove
}

// Replace builds a full-refresh mutation.
func Replace(name Name, seq uint64, items []Entity) Mutation {
	return Mutation{Collection: name, Op: OpReplace, Seq: seq, Items: items}
}

// Upsert builds an insert-or-merge mutation.
func Upsert(name Name, seq uint64, item Entity) Mutation {
	return Mutation{Collection: name, Op: OpUpsert, Seq: seq, Item: item}
}

// Remove builds a delete mutation.
func Remove(name Name, seq uint64, id string) Mutation {
	return Mutation{Collection: name, Op: OpRemove, Seq: seq, ID: id}
}

type collection struct {
	items     map[string]Entity
	order     []string
	prepend   bool
	lastWrite uint64
	lastSeq   uint64
}

func newCollection(prepend bool) *collection {
	return &collection{items: make(map[string]Entity), prepend: prepend}
}

// Store holds every collection of one dashboard.
type Store struct {
	mu   sync.RWMutex
	cols map[Name]*collection
	seq  atomic.Uint64
}

func New() *Store {
	s := &Store{cols: make(map[Name]*collection, len(AllNames))}
	for _, n := range AllNames {
		s.cols[n] = newCollection(n == Notifications)
	}
	return s
}

// Stamp issues the next sequence number. REST refreshes take their stamp when
// the request is issued; push mutations take theirs when applied.
func (s *Store) Stamp() uint64 {
	return s.seq.Add(1)
}

// Apply reduces m into the store.
func (s *Store) Apply(m Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cols[m.Collection]
	if !ok {
		return ErrUnknownCollection
	}
	if m.Seq == 0 {
		m.Seq = s.seq.Add(1)
	}

	switch m.Op {
	case OpReplace:
		if m.Seq < c.lastWrite || m.Seq < c.lastSeq {
			return ErrStale
		}
		c.items = make(map[string]Entity, len(m.Items))
		c.order = c.order[:0]
		for _, item := range m.Items {
			id := IDOf(item)
			if id == "" {
				continue
			}
			if _, dup := c.items[id]; !dup {
				c.order = append(c.order, id)
			}
			c.items[id] = item.Clone()
		}
	case OpUpsert:
		id := IDOf(m.Item)
		if id == "" {
			return ErrMissingID
		}
		if cur, exists := c.items[id]; exists {
			c.items[id] = cur.Merge(m.Item)
		} else {
			c.items[id] = m.Item.Clone()
			if c.prepend {
				c.order = append([]string{id}, c.order...)
			} else {
				c.order = append(c.order, id)
			}
		}
		c.lastWrite = m.Seq
	case OpRemove:
		if _, exists := c.items[m.ID]; exists {
			delete(c.items, m.ID)
			for i, oid := range c.order {
				if oid == m.ID {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		}
		c.lastWrite = m.Seq
	}
	if m.Seq > c.lastSeq {
		c.lastSeq = m.Seq
	}
	return nil
}

// Get returns a copy of one entity.
func (s *Store) Get(name Name, id string) (Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cols[name]
	if !ok {
		return nil, false
	}
	e, ok := c.items[id]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// List returns copies of every entity in collection order.
func (s *Store) List(name Name) []Entity {
	return s.Filter(name, "")
}

// Len returns the size of a collection.
func (s *Store) Len(name Name) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cols[name]; ok {
		return len(c.items)
	}
	return 0
}

// Filter returns entities whose fields contain query, ignoring case. With no
// fields given, name and mobile are searched. An empty query matches all.
func (s *Store) Filter(name Name, query string, fields ...string) []Entity {
	if len(fields) == 0 {
		fields = []string{"name", "mobile"}
	}
	q := strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cols[name]
	if !ok {
		return nil
	}
	out := make([]Entity, 0, len(c.order))
	for _, id := range c.order {
		e := c.items[id]
		if q == "" || matches(e, q, fields) {
			out = append(out, e.Clone())
		}
	}
	return out
}

func matches(e Entity, q string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(e.String(f)), q) {
			return true
		}
	}
	return false
}

// Roster returns the user accounts an admin manages, filtered by query:
// pending accounts first, then approved before disapproved, and within one
// status by points, highest first.
func (s *Store) Roster(query string) []Entity {
	users := s.Filter(Users, query)
	out := users[:0]
	for _, u := range users {
		if u.String("name") == "" || u.String("mobile") == "" {
			continue
		}
		if role := u.String("role"); role != "" && role != domain.RoleUser {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := statusRank(out[i].String("status")), statusRank(out[j].String("status"))
		if ri != rj {
			return ri < rj
		}
		pi, _ := out[i].Int("points")
		pj, _ := out[j].Int("points")
		return pi > pj
	})
	return out
}

func statusRank(status string) int {
	switch status {
	case domain.StatusPending:
		return 0
	case domain.StatusApproved:
		return 1
	case domain.StatusDisapproved:
		return 2
	}
	return 3
}
