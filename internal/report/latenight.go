package report

import (
	"sort"

	"github.com/labrasa/salesdash/internal/models"
)

// Late-night window, hours [LateNightStart, LateNightEnd].
const (
	LateNightStart = 0
	LateNightEnd   = 4
)

// PaymentStat aggregates one payment method.
type PaymentStat struct {
	Method  string  `json:"method"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
	Share   float64 `json:"share"`
}

// PaymentMethods groups revenue by payment method, highest revenue first.
func PaymentMethods(orders []models.Order) []PaymentStat {
	type acc struct {
		orders  int
		revenue amount
	}
	byMethod := map[string]*acc{}
	var total amount
	for _, o := range orders {
		method := o.PaymentMethod
		if method == "" {
			method = "Não informado"
		}
		a, ok := byMethod[method]
		if !ok {
			a = &acc{}
			byMethod[method] = a
		}
		a.orders++
		a.revenue.add(o.Total)
		total.add(o.Total)
	}

	out := make([]PaymentStat, 0, len(byMethod))
	for method, a := range byMethod {
		stat := PaymentStat{Method: method, Orders: a.orders, Revenue: a.revenue.value()}
		if !total.d.IsZero() {
			stat.Share = a.revenue.d.Div(total.d).Round(4).InexactFloat64()
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// HourStat is the performance of one hour of the day.
type HourStat struct {
	Hour          int     `json:"hour"`
	Orders        int     `json:"orders"`
	Revenue       float64 `json:"revenue"`
	AverageTicket float64 `json:"average_ticket"`
}

// LateNightReport covers orders placed between midnight and 04:59.
type LateNightReport struct {
	Orders        int           `json:"orders"`
	Revenue       float64       `json:"revenue"`
	AverageTicket float64       `json:"average_ticket"`
	Days          int           `json:"days"`
	Share         float64       `json:"share"`
	Daily         []DailyPoint  `json:"daily"`
	Hourly        []HourStat    `json:"hourly"`
	Payments      []PaymentStat `json:"payments"`
}

// LateNight reports the late-night window. Hourly always lists every hour of the window.
func LateNight(orders []models.Order) LateNightReport {
	var late []models.Order
	for _, o := range orders {
		if o.Hour >= LateNightStart && o.Hour <= LateNightEnd && OrderDate(o) != "" {
			late = append(late, o)
		}
	}

	var revenue amount
	hours := make([]struct {
		orders  int
		revenue amount
	}, LateNightEnd-LateNightStart+1)
	for _, o := range late {
		revenue.add(o.Total)
		h := &hours[o.Hour-LateNightStart]
		h.orders++
		h.revenue.add(o.Total)
	}

	daily := DailyTrend(late)
	r := LateNightReport{
		Orders:        len(late),
		Revenue:       revenue.value(),
		AverageTicket: revenue.per(len(late)),
		Days:          len(daily),
		Share:         ratio(len(late), len(orders)),
		Daily:         daily,
		Hourly:        make([]HourStat, 0, len(hours)),
		Payments:      PaymentMethods(late),
	}
	for i, h := range hours {
		r.Hourly = append(r.Hourly, HourStat{
			Hour:          LateNightStart + i,
			Orders:        h.orders,
			Revenue:       h.revenue.value(),
			AverageTicket: h.revenue.per(h.orders),
		})
	}
	return r
}

// HourlyTotals returns orders and revenue per hour of day across all weekdays.
func HourlyTotals(orders []models.Order) []HourStat {
	var sums [24]amount
	var counts [24]int
	for _, o := range orders {
		if o.Hour < 0 || o.Hour > 23 || OrderDate(o) == "" {
			continue
		}
		counts[o.Hour]++
		sums[o.Hour].add(o.Total)
	}
	out := make([]HourStat, 24)
	for h := range out {
		out[h] = HourStat{Hour: h, Orders: counts[h], Revenue: sums[h].value(), AverageTicket: sums[h].per(counts[h])}
	}
	return out
}
