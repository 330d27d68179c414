package report

import (
	"sort"

	"github.com/labrasa/salesdash/internal/models"
)

// Summary holds the headline KPIs.
type Summary struct {
	Orders              int     `json:"orders"`
	Revenue             float64 `json:"revenue"`
	AverageTicket       float64 `json:"average_ticket"`
	Items               float64 `json:"items"`
	DeliveryFees        float64 `json:"delivery_fees"`
	ServiceFees         float64 `json:"service_fees"`
	Surcharges          float64 `json:"surcharges"`
	Discounts           float64 `json:"discounts"`
	Days                int     `json:"days"`
	DailyAverageRevenue float64 `json:"daily_average_revenue"`
	DeliveryOrders      int     `json:"delivery_orders"`
	DeliveryRevenue     float64 `json:"delivery_revenue"`
	CounterOrders       int     `json:"counter_orders"`
	CounterRevenue      float64 `json:"counter_revenue"`
	CancelledOrders     int     `json:"cancelled_orders"`
	CancelledValue      float64 `json:"cancelled_value"`
	CancellationRate    float64 `json:"cancellation_rate"`
}

func Summarize(d Dataset) Summary {
	var revenue, items, delivery, service, surcharge, discount, deliveryRev, counterRev, cancelled amount
	s := Summary{Orders: len(d.Valid), CancelledOrders: len(d.Cancelled)}
	days := map[string]bool{}

	for _, o := range d.Valid {
		revenue.add(o.Total)
		items.add(o.Items)
		delivery.add(o.DeliveryFee)
		service.add(o.ServiceFee)
		surcharge.add(o.Surcharge)
		discount.add(o.Discount)
		days[OrderDate(o)] = true
		if o.IsDelivery() {
			s.DeliveryOrders++
			deliveryRev.add(o.Total)
		} else {
			s.CounterOrders++
			counterRev.add(o.Total)
		}
	}
	for _, o := range d.Cancelled {
		cancelled.add(o.Total)
	}

	s.Revenue = revenue.value()
	s.AverageTicket = revenue.per(s.Orders)
	s.Items = items.value()
	s.DeliveryFees = delivery.value()
	s.ServiceFees = service.value()
	s.Surcharges = surcharge.value()
	s.Discounts = discount.value()
	s.Days = len(days)
	s.DailyAverageRevenue = revenue.per(s.Days)
	s.DeliveryRevenue = deliveryRev.value()
	s.CounterRevenue = counterRev.value()
	s.CancelledValue = cancelled.value()
	s.CancellationRate = ratio(s.CancelledOrders, s.Orders+s.CancelledOrders)
	return s
}

// DailyPoint is one day of a trend series.
type DailyPoint struct {
	Date          string  `json:"date"`
	Orders        int     `json:"orders"`
	Revenue       float64 `json:"revenue"`
	AverageTicket float64 `json:"average_ticket"`
}

// DailyTrend returns revenue and orders per date, oldest first.
func DailyTrend(orders []models.Order) []DailyPoint {
	type acc struct {
		orders  int
		revenue amount
	}
	byDate := map[string]*acc{}
	for _, o := range orders {
		date := OrderDate(o)
		if date == "" {
			continue
		}
		a, ok := byDate[date]
		if !ok {
			a = &acc{}
			byDate[date] = a
		}
		a.orders++
		a.revenue.add(o.Total)
	}

	out := make([]DailyPoint, 0, len(byDate))
	for date, a := range byDate {
		out = append(out, DailyPoint{
			Date:          date,
			Orders:        a.orders,
			Revenue:       a.revenue.value(),
			AverageTicket: a.revenue.per(a.orders),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// WeekdayCard summarizes one weekday across the filtered period.
type WeekdayCard struct {
	Weekday       string  `json:"weekday"`
	Orders        int     `json:"orders"`
	Revenue       float64 `json:"revenue"`
	AverageTicket float64 `json:"average_ticket"`
	Days          int     `json:"days"`
	OrdersPerDay  float64 `json:"orders_per_day"`
	RevenuePerDay float64 `json:"revenue_per_day"`
}

// WeekdayCards returns one card per weekday, Monday first, including empty days.
func WeekdayCards(orders []models.Order) []WeekdayCard {
	type acc struct {
		orders  int
		revenue amount
		dates   map[string]bool
	}
	byDay := map[string]*acc{}
	for _, label := range models.WeekdayLabels {
		byDay[label] = &acc{dates: map[string]bool{}}
	}
	for _, o := range orders {
		a, ok := byDay[o.Weekday]
		if !ok {
			continue
		}
		a.orders++
		a.revenue.add(o.Total)
		a.dates[OrderDate(o)] = true
	}

	out := make([]WeekdayCard, 0, len(models.WeekdayLabels))
	for _, label := range models.WeekdayLabels {
		a := byDay[label]
		days := len(a.dates)
		out = append(out, WeekdayCard{
			Weekday:       label,
			Orders:        a.orders,
			Revenue:       a.revenue.value(),
			AverageTicket: a.revenue.per(a.orders),
			Days:          days,
			OrdersPerDay:  perDay(a.orders, days),
			RevenuePerDay: a.revenue.per(days),
		})
	}
	return out
}

// Heatmap is a weekday × hour matrix.
type Heatmap struct {
	Weekdays []string    `json:"weekdays"`
	Hours    []int       `json:"hours"`
	Orders   [][]int     `json:"orders"`
	Revenue  [][]float64 `json:"revenue"`
}

// HourlyHeatmap counts orders and revenue per weekday and hour of day.
func HourlyHeatmap(orders []models.Order) Heatmap {
	rows := len(models.WeekdayLabels)
	row := map[string]int{}
	for i, label := range models.WeekdayLabels {
		row[label] = i
	}

	counts := make([][]int, rows)
	sums := make([][]amount, rows)
	for i := range counts {
		counts[i] = make([]int, 24)
		sums[i] = make([]amount, 24)
	}
	for _, o := range orders {
		r, ok := row[o.Weekday]
		if !ok || o.Hour < 0 || o.Hour > 23 {
			continue
		}
		counts[r][o.Hour]++
		sums[r][o.Hour].add(o.Total)
	}

	h := Heatmap{
		Weekdays: models.WeekdayLabels,
		Hours:    make([]int, 24),
		Orders:   counts,
		Revenue:  make([][]float64, rows),
	}
	for i := range h.Hours {
		h.Hours[i] = i
	}
	for r := range sums {
		h.Revenue[r] = make([]float64, 24)
		for c := range sums[r] {
			h.Revenue[r][c] = sums[r][c].value()
		}
	}
	return h
}

// ChannelStat aggregates one sales channel.
type ChannelStat struct {
	Channel string  `json:"channel"`
	Type    string  `json:"type,omitempty"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
	Share   float64 `json:"share"`
}

// ChannelBreakdown groups orders by raw channel name, busiest first.
func ChannelBreakdown(orders []models.Order) []ChannelStat {
	type acc struct {
		kind    string
		orders  int
		revenue amount
	}
	byChannel := map[string]*acc{}
	for _, o := range orders {
		name := o.Channel
		if name == "" {
			name = "(sem canal)"
		}
		a, ok := byChannel[name]
		if !ok {
			a = &acc{kind: o.ChannelType}
			byChannel[name] = a
		}
		a.orders++
		a.revenue.add(o.Total)
	}

	out := make([]ChannelStat, 0, len(byChannel))
	for name, a := range byChannel {
		out = append(out, ChannelStat{
			Channel: name,
			Type:    a.kind,
			Orders:  a.orders,
			Revenue: a.revenue.value(),
			Share:   ratio(a.orders, len(orders)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Orders != out[j].Orders {
			return out[i].Orders > out[j].Orders
		}
		return out[i].Channel < out[j].Channel
	})
	return out
}
