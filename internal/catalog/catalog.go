// Package catalog holds the fixed schedule of shuttle slots.
package catalog

import (
	"fmt"

	"shuttle/internal/domain"
	"shuttle/internal/domain/models"
)

const (
	DefaultCapacity = 29

	RouteOutbound = "Assetz Marq → Kadugodi Metro"
	RouteReturn   = "Kadugodi Metro → Assetz Marq"

	BoardingOutbound = "Assetz Marq (near the roundabout)"
	BoardingReturn   = "Kadugodi Metro Station"
)

// Catalog is an immutable, ordered set of slots.
type Catalog struct {
	slots []models.Slot
	byID  map[string]int
}

// New validates and indexes the given slots. Ids must be unique and capacity > 0.
func New(slots []models.Slot) (*Catalog, error) {
	c := &Catalog{
		slots: make([]models.Slot, 0, len(slots)),
		byID:  make(map[string]int, len(slots)),
	}
	for _, s := range slots {
		if s.ID == "" {
			return nil, fmt.Errorf("slot without id")
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("duplicate slot id %s", s.ID)
		}
		if s.Capacity <= 0 {
			return nil, fmt.Errorf("slot %s: capacity must be positive", s.ID)
		}
		if !s.Direction.Valid() {
			return nil, fmt.Errorf("slot %s: invalid direction %q", s.ID, s.Direction)
		}
		if s.Route == "" {
			s.Route = routeFor(s.Direction)
		}
		if s.BoardingPoint == "" {
			s.BoardingPoint = boardingFor(s.Direction)
		}
		c.byID[s.ID] = len(c.slots)
		c.slots = append(c.slots, s)
	}
	return c, nil
}

// Default returns the production schedule: four outbound morning and four return evening slots.
func Default() *Catalog {
	c, err := New(DefaultSlots())
	if err != nil {
		panic(err)
	}
	return c
}

func DefaultSlots() []models.Slot {
	mk := func(id string, dir domain.Direction, dep, arr string) models.Slot {
		return models.Slot{ID: id, Direction: dir, DepartureTime: dep, ArrivalTime: arr, Capacity: DefaultCapacity}
	}
	return []models.Slot{
		mk("morning-1", domain.DirectionOutbound, "7:25 AM", "7:50 AM"),
		mk("morning-2", domain.DirectionOutbound, "8:15 AM", "8:40 AM"),
		mk("morning-3", domain.DirectionOutbound, "8:55 AM", "9:20 AM"),
		mk("morning-4", domain.DirectionOutbound, "9:45 AM", "10:15 AM"),
		mk("evening-1", domain.DirectionReturn, "5:00 PM", "5:25 PM"),
		mk("evening-2", domain.DirectionReturn, "6:00 PM", "6:25 PM"),
		mk("evening-3", domain.DirectionReturn, "7:00 PM", "7:25 PM"),
		mk("evening-4", domain.DirectionReturn, "8:00 PM", "8:25 PM"),
	}
}

// Get returns the slot or a NotFoundError. Unknown ids never resolve to zero capacity.
func (c *Catalog) Get(id string) (models.Slot, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Slot{}, domain.NotFoundError{Resource: "slot " + id}
	}
	return c.slots[i], nil
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// All returns a copy of the slots in schedule order.
func (c *Catalog) All() []models.Slot {
	out := make([]models.Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// ByDirection returns the slots of one direction in schedule order.
func (c *Catalog) ByDirection(d domain.Direction) []models.Slot {
	out := []models.Slot{}
	for _, s := range c.slots {
		if s.Direction == d {
			out = append(out, s)
		}
	}
	return out
}

// Order returns the schedule position of a slot, or len(slots) when unknown.
func (c *Catalog) Order(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return len(c.slots)
}

func routeFor(d domain.Direction) string {
	if d == domain.DirectionReturn {
		return RouteReturn
	}
	return RouteOutbound
}

func boardingFor(d domain.Direction) string {
	if d == domain.DirectionReturn {
		return BoardingReturn
	}
	return BoardingOutbound
}
