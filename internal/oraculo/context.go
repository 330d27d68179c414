// Package oraculo answers free-text questions about the filtered sales data.
package oraculo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/money"
	"github.com/labrasa/salesdash/internal/report"
)

// NoData is the context sent when the filters leave no orders.
const NoData = "Nenhum pedido encontrado para os filtros aplicados."

// BuildContext summarizes the filtered data as a markdown block for the model.
func BuildContext(ds report.Dataset, f report.Filter) string {
	ds = ds.Apply(f)

	var b strings.Builder
	first, last := report.DateRange(ds)
	switch {
	case first != "":
		fmt.Fprintf(&b, "## Resumo dos dados (%s a %s)\n", first, last)
	default:
		b.WriteString("## Resumo dos dados\n")
	}
	if len(f.Channels) > 0 {
		fmt.Fprintf(&b, "Canais filtrados: %s\n", strings.Join(f.Channels, ", "))
	} else {
		b.WriteString("Canais filtrados: todos\n")
	}

	if ds.Empty() {
		b.WriteString("\n" + NoData + "\n")
		return b.String()
	}

	s := report.Summarize(ds)
	b.WriteString("\n### Indicadores\n")
	fmt.Fprintf(&b, "- Faturamento: %s\n", money.Format(s.Revenue))
	fmt.Fprintf(&b, "- Pedidos: %s\n", money.FormatNumber(s.Orders))
	fmt.Fprintf(&b, "- Ticket médio: %s\n", money.Format(s.AverageTicket))
	fmt.Fprintf(&b, "- Faturamento médio por dia: %s (%d dias)\n", money.Format(s.DailyAverageRevenue), s.Days)
	fmt.Fprintf(&b, "- Taxas de entrega: %s\n", money.Format(s.DeliveryFees))
	fmt.Fprintf(&b, "- Descontos: %s\n", money.Format(s.Discounts))
	fmt.Fprintf(&b, "- %s: %d pedidos, %s\n", models.ChannelDelivery, s.DeliveryOrders, money.Format(s.DeliveryRevenue))
	fmt.Fprintf(&b, "- %s: %d pedidos, %s\n", models.ChannelCounter, s.CounterOrders, money.Format(s.CounterRevenue))
	fmt.Fprintf(&b, "- Cancelamentos: %d pedidos, %s perdidos (%s do total)\n",
		s.CancelledOrders, money.Format(s.CancelledValue), percent(s.CancellationRate))

	if channels := report.ChannelBreakdown(ds.Valid); len(channels) > 0 {
		b.WriteString("\n### Canais\n")
		for _, c := range channels {
			fmt.Fprintf(&b, "- Canal %s: %d pedidos, %s (%s)\n", c.Channel, c.Orders, money.Format(c.Revenue), percent(c.Share))
		}
	}

	b.WriteString("\n### Dias da semana (maior faturamento)\n")
	cards := report.WeekdayCards(ds.Valid)
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Revenue > cards[j].Revenue })
	for _, c := range top(cards, 3) {
		if c.Orders == 0 {
			continue
		}
		fmt.Fprintf(&b, "- Dia da semana %s: %d pedidos, %s, média de %s por dia\n",
			c.Weekday, c.Orders, money.Format(c.Revenue), money.Format(c.RevenuePerDay))
	}

	b.WriteString("\n### Horários de pico\n")
	hours := report.HourlyTotals(ds.Valid)
	sort.SliceStable(hours, func(i, j int) bool { return hours[i].Orders > hours[j].Orders })
	for _, h := range top(hours, 3) {
		if h.Orders == 0 {
			continue
		}
		fmt.Fprintf(&b, "- Horário %02dh: %d pedidos, %s\n", h.Hour, h.Orders, money.Format(h.Revenue))
	}

	if hoods := report.Neighborhoods(ds.Valid, 5); len(hoods) > 0 {
		b.WriteString("\n### Bairros com mais pedidos\n")
		for _, n := range hoods {
			fmt.Fprintf(&b, "- Bairro %s: %d pedidos, %s\n", n.Neighborhood, n.Orders, money.Format(n.Revenue))
		}
	}

	if payments := report.PaymentMethods(ds.Valid); len(payments) > 0 {
		b.WriteString("\n### Formas de pagamento\n")
		for _, p := range payments {
			fmt.Fprintf(&b, "- Pagamento %s: %d pedidos, %s (%s)\n", p.Method, p.Orders, money.Format(p.Revenue), percent(p.Share))
		}
	}

	night := report.LateNight(ds.Valid)
	b.WriteString("\n### Madrugada (0h a 4h)\n")
	fmt.Fprintf(&b, "- Madrugada: %d pedidos, %s, ticket médio %s\n",
		night.Orders, money.Format(night.Revenue), money.Format(night.AverageTicket))

	if len(ds.Cancelled) > 0 {
		b.WriteString("\n### Cancelamentos por canal\n")
		for _, c := range report.ChannelBreakdown(ds.Cancelled) {
			fmt.Fprintf(&b, "- Cancelados no canal %s: %d, %s\n", c.Channel, c.Orders, money.Format(c.Revenue))
		}
	}

	return b.String()
}

func top[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func percent(r float64) string {
	return strings.Replace(fmt.Sprintf("%.1f%%", r*100), ".", ",", 1)
}
