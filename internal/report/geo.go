package report

import (
	"sort"

	"github.com/labrasa/salesdash/internal/geocode"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/normalize"
)

// Locator resolves a postal code to cached coordinates.
type Locator interface {
	Get(code string) (geocode.Entry, bool)
}

// MapPoint is one postal code on the delivery map.
type MapPoint struct {
	PostalCode   string  `json:"postal_code"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Orders       int     `json:"orders"`
	Revenue      float64 `json:"revenue"`
}

// DeliveryMap holds located delivery orders plus the count of those that could not be placed.
type DeliveryMap struct {
	Points            []MapPoint `json:"points"`
	DeliveryOrders    int        `json:"delivery_orders"`
	Unlocated         int        `json:"unlocated"`
	WithoutPostalCode int        `json:"without_postal_code"`
}

// BuildDeliveryMap groups delivery orders by postal code and joins the geocode cache.
func BuildDeliveryMap(orders []models.Order, loc Locator) DeliveryMap {
	type acc struct {
		entry        geocode.Entry
		neighborhood string
		orders       int
		revenue      amount
	}
	m := DeliveryMap{Points: []MapPoint{}}
	byCode := map[string]*acc{}

	for _, o := range orders {
		if !o.IsDelivery() {
			continue
		}
		m.DeliveryOrders++
		if o.PostalCode == "" {
			m.WithoutPostalCode++
			continue
		}
		a, ok := byCode[o.PostalCode]
		if !ok {
			var entry geocode.Entry
			if loc != nil {
				entry, ok = loc.Get(o.PostalCode)
			}
			if !ok {
				m.Unlocated++
				continue
			}
			a = &acc{entry: entry}
			byCode[o.PostalCode] = a
		}
		if a.neighborhood == "" && o.Neighborhood != "" {
			a.neighborhood = normalize.CanonicalText(o.Neighborhood)
		}
		a.orders++
		a.revenue.add(o.Total)
	}

	for code, a := range byCode {
		m.Points = append(m.Points, MapPoint{
			PostalCode:   code,
			Neighborhood: a.neighborhood,
			Latitude:     a.entry.Latitude,
			Longitude:    a.entry.Longitude,
			Orders:       a.orders,
			Revenue:      a.revenue.value(),
		})
	}
	sort.Slice(m.Points, func(i, j int) bool {
		if m.Points[i].Orders != m.Points[j].Orders {
			return m.Points[i].Orders > m.Points[j].Orders
		}
		return m.Points[i].PostalCode < m.Points[j].PostalCode
	})
	return m
}

// NeighborhoodStat aggregates delivery orders of one neighborhood.
type NeighborhoodStat struct {
	Neighborhood  string  `json:"neighborhood"`
	Orders        int     `json:"orders"`
	Revenue       float64 `json:"revenue"`
	AverageTicket float64 `json:"average_ticket"`
}

// Neighborhoods ranks neighborhoods by order count and keeps the top n (n <= 0 keeps all).
// Names are grouped on their canonical form so "Farol" and "FARÓL " land together.
func Neighborhoods(orders []models.Order, n int) []NeighborhoodStat {
	type acc struct {
		orders  int
		revenue amount
	}
	byName := map[string]*acc{}
	for _, o := range orders {
		name := normalize.CanonicalText(o.Neighborhood)
		if name == "" {
			continue
		}
		a, ok := byName[name]
		if !ok {
			a = &acc{}
			byName[name] = a
		}
		a.orders++
		a.revenue.add(o.Total)
	}

	out := make([]NeighborhoodStat, 0, len(byName))
	for name, a := range byName {
		out = append(out, NeighborhoodStat{
			Neighborhood:  name,
			Orders:        a.orders,
			Revenue:       a.revenue.value(),
			AverageTicket: a.revenue.per(a.orders),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].Neighborhood < out[j].Neighborhood
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
