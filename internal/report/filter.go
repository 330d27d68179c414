// Package report computes the dashboard aggregates over stored orders.
// Every function is pure and works on an already filtered Dataset.
package report

import (
	"sort"
	"time"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/normalize"
	"github.com/shopspring/decimal"
)

// Dataset holds both store tables.
type Dataset struct {
	Valid     []models.Order
	Cancelled []models.Order
}

// Filter selects orders by inclusive date range and channel. Zero values match everything.
type Filter struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Channels []string  `json:"channels,omitempty"`
}

// Apply returns the orders of d that match f.
func (d Dataset) Apply(f Filter) Dataset {
	match := f.matcher()
	return Dataset{
		Valid:     filterOrders(d.Valid, match),
		Cancelled: filterOrders(d.Cancelled, match),
	}
}

// Empty reports whether no order survived the filter.
func (d Dataset) Empty() bool {
	return len(d.Valid) == 0 && len(d.Cancelled) == 0
}

func (f Filter) matcher() func(models.Order) bool {
	from, to := "", ""
	if !f.From.IsZero() {
		from = f.From.Format(models.DateLayout)
	}
	if !f.To.IsZero() {
		to = f.To.Format(models.DateLayout)
	}
	channels := map[string]bool{}
	for _, c := range f.Channels {
		channels[normalize.CanonicalText(c)] = true
	}

	return func(o models.Order) bool {
		date := OrderDate(o)
		if from != "" && (date == "" || date < from) {
			return false
		}
		if to != "" && (date == "" || date > to) {
			return false
		}
		if len(channels) > 0 && !channels[normalize.CanonicalText(o.Channel)] {
			return false
		}
		return true
	}
}

func filterOrders(orders []models.Order, match func(models.Order) bool) []models.Order {
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if match(o) {
			out = append(out, o)
		}
	}
	return out
}

// OrderDate is the local sale date, also for cancelled rows stored without derived columns.
func OrderDate(o models.Order) string {
	if o.Date != "" {
		return o.Date
	}
	if !o.SaleTime.IsZero() {
		return o.SaleTime.Format(models.DateLayout)
	}
	return ""
}

// Channels lists the distinct channel names across both tables.
func Channels(d Dataset) []string {
	seen := map[string]bool{}
	var out []string
	for _, list := range [][]models.Order{d.Valid, d.Cancelled} {
		for _, o := range list {
			if o.Channel != "" && !seen[o.Channel] {
				seen[o.Channel] = true
				out = append(out, o.Channel)
			}
		}
	}
	sort.Strings(out)
	return out
}

// DateRange returns the first and last sale dates of the valid orders.
func DateRange(d Dataset) (first, last string) {
	for _, o := range d.Valid {
		date := OrderDate(o)
		if date == "" {
			continue
		}
		if first == "" || date < first {
			first = date
		}
		if date > last {
			last = date
		}
	}
	return first, last
}

// amount sums money without float drift.
type amount struct {
	d decimal.Decimal
}

func (a *amount) add(v float64) {
	a.d = a.d.Add(decimal.NewFromFloat(v))
}

func (a amount) value() float64 {
	return a.d.Round(2).InexactFloat64()
}

func (a amount) per(n int) float64 {
	if n == 0 {
		return 0
	}
	return a.d.Div(decimal.NewFromInt(int64(n))).Round(2).InexactFloat64()
}

func perDay(count, days int) float64 {
	if days == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(count)).Div(decimal.NewFromInt(int64(days))).Round(2).InexactFloat64()
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).Div(decimal.NewFromInt(int64(whole))).Round(4).InexactFloat64()
}
