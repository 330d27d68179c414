package report

import "github.com/labrasa/salesdash/internal/money"

// CancellationReport breaks down cancelled orders.
type CancellationReport struct {
	Count     int           `json:"count"`
	LostValue float64       `json:"lost_value"`
	Rate      float64       `json:"rate"`
	ByChannel []ChannelStat `json:"by_channel"`
	ByDate    []DailyPoint  `json:"by_date"`
}

func Cancellations(d Dataset) CancellationReport {
	var lost amount
	for _, o := range d.Cancelled {
		lost.add(o.Total)
	}
	return CancellationReport{
		Count:     len(d.Cancelled),
		LostValue: lost.value(),
		Rate:      ratio(len(d.Cancelled), len(d.Valid)+len(d.Cancelled)),
		ByChannel: ChannelBreakdown(d.Cancelled),
		ByDate:    DailyTrend(d.Cancelled),
	}
}

// FormatBRL renders a value as Brazilian currency, e.g. R$ 1.234,56.
func FormatBRL(v float64) string {
	return money.Format(v)
}
