package api

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/udisondev/traderplus/internal/pricing"
	"github.com/udisondev/traderplus/internal/trade"
)

type sessionItem struct {
	networkID   string
	className   string
	state       pricing.ItemState
	quantity    float64
	maxQuantity float64
	attachments []string
}

func (i *sessionItem) NetworkID() string        { return i.networkID }
func (i *sessionItem) ClassName() string        { return i.className }
func (i *sessionItem) State() pricing.ItemState { return i.state }
func (i *sessionItem) Quantity() float64        { return i.quantity }
func (i *sessionItem) MaxQuantity() float64     { return i.maxQuantity }

// session is a player snapshot sent by the host for one batch. It applies
// the batch to the snapshot and reports what changed; the host replays the
// changes on its own player.
type session struct {
	mu         sync.Mutex
	id         string
	licenses   map[string]bool
	holdings   map[string]int64
	initial    map[string]int64
	items      map[string]*sessionItem
	capacities map[string]float64

	spawned []string
	removed []string
}

func newSession(req BatchRequest) (*session, error) {
	s := &session{
		id:         req.ActorID,
		licenses:   make(map[string]bool, len(req.Licenses)),
		holdings:   make(map[string]int64, len(req.Holdings)),
		initial:    maps.Clone(req.Holdings),
		items:      make(map[string]*sessionItem, len(req.Items)),
		capacities: req.Capacities,
	}
	for _, l := range req.Licenses {
		s.licenses[l] = true
	}
	for class, n := range req.Holdings {
		if n < 0 {
			return nil, fmt.Errorf("negative holding of %s", class)
		}
		s.holdings[class] = n
	}
	for _, it := range req.Items {
		state, err := pricing.ParseItemState(it.State)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.NetworkID, err)
		}
		if _, dup := s.items[it.NetworkID]; dup || it.NetworkID == "" {
			return nil, fmt.Errorf("item %q: missing or duplicate network id", it.NetworkID)
		}
		s.items[it.NetworkID] = &sessionItem{
			networkID:   it.NetworkID,
			className:   it.ClassName,
			state:       state,
			quantity:    it.Quantity,
			maxQuantity: it.MaxQuantity,
		}
	}
	return s, nil
}

func (s *session) ID() string                  { return s.id }
func (s *session) HasLicense(name string) bool { return s.licenses[name] }

func (s *session) Locate(networkID string) (trade.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[networkID]
	if !ok {
		return nil, false
	}
	return item, true
}

func (s *session) Holdings(classNames []string) map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(classNames))
	for _, c := range classNames {
		out[c] = s.holdings[c]
	}
	return out
}

func (s *session) Withdraw(className string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdings[className] < n {
		return fmt.Errorf("holding %d of %s, need %d", s.holdings[className], className, n)
	}
	s.holdings[className] -= n
	return nil
}

func (s *session) Deposit(className string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holdings[className] += n
	return nil
}

func (s *session) Spawn(className string, attachments []string, quantity func(float64) float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxQty := s.capacities[className]
	item := &sessionItem{
		networkID:   uuid.NewString(),
		className:   className,
		quantity:    quantity(maxQty),
		maxQuantity: maxQty,
		attachments: slices.Clone(attachments),
	}
	s.items[item.networkID] = item
	s.spawned = append(s.spawned, item.networkID)
	return item.networkID, nil
}

func (s *session) Remove(networkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[networkID]; !ok {
		return fmt.Errorf("no item %s", networkID)
	}
	delete(s.items, networkID)

	// An item spawned in this batch never reached the host.
	if i := slices.Index(s.spawned, networkID); i >= 0 {
		s.spawned = slices.Delete(s.spawned, i, i+1)
		return nil
	}
	s.removed = append(s.removed, networkID)
	return nil
}

// changes reports the net effect of the batch on the snapshot.
func (s *session) changes() (currency map[string]int64, spawned []SpawnedItem, removed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	currency = make(map[string]int64)
	for class, n := range s.holdings {
		if d := n - s.initial[class]; d != 0 {
			currency[class] = d
		}
	}

	spawned = make([]SpawnedItem, 0, len(s.spawned))
	for _, id := range s.spawned {
		it := s.items[id]
		spawned = append(spawned, SpawnedItem{
			NetworkID:   it.networkID,
			ClassName:   it.className,
			Attachments: nonNil(it.attachments),
			Quantity:    it.quantity,
		})
	}
	return currency, spawned, slices.Clone(nonNil(s.removed))
}
