package report

import (
	"testing"
	"time"

	"github.com/labrasa/salesdash/internal/geocode"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var maceio = time.FixedZone("-03", -3*60*60)

type mapLocator map[string]geocode.Entry

func (m mapLocator) Get(code string) (geocode.Entry, bool) {
	e, ok := m[code]
	return e, ok
}

func sale(id, ts, channel, kind string, total float64) models.Order {
	t, err := time.ParseInLocation("2006-01-02 15:04", ts, maceio)
	if err != nil {
		panic(err)
	}
	o := models.Order{
		OrderID:       id,
		SaleTime:      t,
		Channel:       channel,
		ChannelType:   kind,
		CancelledFlag: models.FlagValid,
		Total:         total,
	}
	o.Derive()
	return o
}

func fixture() Dataset {
	a := sale("1", "2025-06-14 20:00", "IFOOD", models.ChannelDelivery, 50)
	a.PostalCode, a.Neighborhood, a.PaymentMethod, a.DeliveryFee = "57035000", "Farol", "Pix", 5

	b := sale("2", "2025-06-14 21:00", "BALCÃO", models.ChannelCounter, 30)
	b.PaymentMethod = "Dinheiro"

	c := sale("3", "2025-06-15 01:30", "IFOOD", models.ChannelDelivery, 20.1)
	c.PostalCode, c.Neighborhood, c.PaymentMethod = "57036000", "FARÓL ", "Pix"

	d := sale("4", "2025-06-16 02:00", "BRENDI", models.ChannelDelivery, 40.2)
	d.PostalCode, d.Neighborhood, d.PaymentMethod = "11111111", "Ponta Verde", "Cartão"

	// cancelled rows are stored without derived columns by default
	x := sale("5", "2025-06-14 22:00", "IFOOD", "", 10)
	x.CancelledFlag, x.Date, x.Hour, x.Weekday = models.FlagCancelled, "", 0, ""

	return Dataset{Valid: []models.Order{a, b, c, d}, Cancelled: []models.Order{x}}
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixture())

	assert.Equal(t, 4, s.Orders)
	assert.Equal(t, 140.3, s.Revenue)
	assert.Equal(t, 35.08, s.AverageTicket)
	assert.Equal(t, 3, s.Days)
	assert.Equal(t, 46.77, s.DailyAverageRevenue)
	assert.Equal(t, 5.0, s.DeliveryFees)
	assert.Equal(t, 3, s.DeliveryOrders)
	assert.Equal(t, 110.3, s.DeliveryRevenue)
	assert.Equal(t, 1, s.CounterOrders)
	assert.Equal(t, 30.0, s.CounterRevenue)
	assert.Equal(t, 1, s.CancelledOrders)
	assert.Equal(t, 10.0, s.CancelledValue)
	assert.Equal(t, 0.2, s.CancellationRate)
}

func TestSummarizeEmptyPeriodIsZeroed(t *testing.T) {
	s := Summarize(Dataset{})
	assert.Equal(t, Summary{}, s)

	night := LateNight(nil)
	assert.Len(t, night.Hourly, 5)
	assert.Equal(t, 0, night.Orders)
}

func TestApplyFilter(t *testing.T) {
	ds := fixture()

	byDate := ds.Apply(Filter{From: time.Date(2025, 6, 15, 0, 0, 0, 0, maceio)})
	assert.Len(t, byDate.Valid, 2)
	assert.Empty(t, byDate.Cancelled)

	upTo := ds.Apply(Filter{To: time.Date(2025, 6, 14, 0, 0, 0, 0, maceio)})
	assert.Len(t, upTo.Valid, 2)
	assert.Len(t, upTo.Cancelled, 1, "cancelled rows filter on their sale time")

	byChannel := ds.Apply(Filter{Channels: []string{"ifood"}})
	assert.Len(t, byChannel.Valid, 2)
	assert.Len(t, byChannel.Cancelled, 1)

	none := ds.Apply(Filter{Channels: []string{"RAPPI"}})
	assert.True(t, none.Empty())
	assert.False(t, ds.Empty())
}

func TestChannelsAndDateRange(t *testing.T) {
	ds := fixture()
	assert.Equal(t, []string{"BALCÃO", "BRENDI", "IFOOD"}, Channels(ds))

	first, last := DateRange(ds)
	assert.Equal(t, "2025-06-14", first)
	assert.Equal(t, "2025-06-16", last)
}

func TestDailyTrend(t *testing.T) {
	trend := DailyTrend(fixture().Valid)
	require.Len(t, trend, 3)
	assert.Equal(t, DailyPoint{Date: "2025-06-14", Orders: 2, Revenue: 80, AverageTicket: 40}, trend[0])
	assert.Equal(t, "2025-06-16", trend[2].Date)
}

func TestWeekdayCardsListEveryDay(t *testing.T) {
	cards := WeekdayCards(fixture().Valid)
	require.Len(t, cards, 7)
	assert.Equal(t, "1. Segunda", cards[0].Weekday)
	assert.Equal(t, 1, cards[0].Orders)
	assert.Equal(t, 0, cards[2].Orders)

	saturday := cards[5]
	assert.Equal(t, "6. Sábado", saturday.Weekday)
	assert.Equal(t, 2, saturday.Orders)
	assert.Equal(t, 1, saturday.Days)
	assert.Equal(t, 2.0, saturday.OrdersPerDay)
	assert.Equal(t, 80.0, saturday.RevenuePerDay)
}

func TestHourlyHeatmap(t *testing.T) {
	h := HourlyHeatmap(fixture().Valid)
	require.Len(t, h.Orders, 7)
	require.Len(t, h.Orders[5], 24)
	assert.Equal(t, 1, h.Orders[5][20])
	assert.Equal(t, 30.0, h.Revenue[5][21])
	assert.Equal(t, 1, h.Orders[6][1])
	assert.Equal(t, 0, h.Orders[0][12])
}

func TestChannelBreakdown(t *testing.T) {
	stats := ChannelBreakdown(fixture().Valid)
	require.Len(t, stats, 3)
	assert.Equal(t, "IFOOD", stats[0].Channel)
	assert.Equal(t, models.ChannelDelivery, stats[0].Type)
	assert.Equal(t, 2, stats[0].Orders)
	assert.Equal(t, 70.1, stats[0].Revenue)
	assert.Equal(t, 0.5, stats[0].Share)
}

func TestDeliveryMap(t *testing.T) {
	loc := mapLocator{
		"57035000": {PostalCode: "57035000", Latitude: -9.65, Longitude: -35.71},
		"57036000": {PostalCode: "57036000", Latitude: -9.66, Longitude: -35.70},
	}
	m := BuildDeliveryMap(fixture().Valid, loc)

	assert.Equal(t, 3, m.DeliveryOrders)
	assert.Equal(t, 1, m.Unlocated)
	assert.Equal(t, 0, m.WithoutPostalCode)
	require.Len(t, m.Points, 2)
	assert.Equal(t, "57035000", m.Points[0].PostalCode)
	assert.Equal(t, "FAROL", m.Points[0].Neighborhood)
	assert.Equal(t, -9.65, m.Points[0].Latitude)
	assert.Equal(t, 50.0, m.Points[0].Revenue)
}

func TestDeliveryMapWithoutCache(t *testing.T) {
	m := BuildDeliveryMap(fixture().Valid, nil)
	assert.Empty(t, m.Points)
	assert.Equal(t, 3, m.Unlocated)
}

func TestNeighborhoodsGroupCanonicalNames(t *testing.T) {
	all := Neighborhoods(fixture().Valid, 0)
	require.Len(t, all, 2)
	assert.Equal(t, NeighborhoodStat{Neighborhood: "FAROL", Orders: 2, Revenue: 70.1, AverageTicket: 35.05}, all[0])

	top := Neighborhoods(fixture().Valid, 1)
	assert.Len(t, top, 1)
}

func TestCancellations(t *testing.T) {
	c := Cancellations(fixture())
	assert.Equal(t, 1, c.Count)
	assert.Equal(t, 10.0, c.LostValue)
	assert.Equal(t, 0.2, c.Rate)
	require.Len(t, c.ByDate, 1)
	assert.Equal(t, "2025-06-14", c.ByDate[0].Date)
	require.Len(t, c.ByChannel, 1)
	assert.Equal(t, "IFOOD", c.ByChannel[0].Channel)
}

func TestPaymentMethods(t *testing.T) {
	stats := PaymentMethods(fixture().Valid)
	require.Len(t, stats, 3)
	assert.Equal(t, "Pix", stats[0].Method)
	assert.Equal(t, 70.1, stats[0].Revenue)
	assert.Equal(t, 0.4996, stats[0].Share)

	assert.Equal(t, "Não informado", PaymentMethods([]models.Order{{Total: 1}})[0].Method)
}

func TestLateNight(t *testing.T) {
	night := LateNight(fixture().Valid)

	assert.Equal(t, 2, night.Orders)
	assert.Equal(t, 60.3, night.Revenue)
	assert.Equal(t, 30.15, night.AverageTicket)
	assert.Equal(t, 2, night.Days)
	assert.Equal(t, 0.5, night.Share)
	require.Len(t, night.Hourly, 5)
	for i, h := range night.Hourly {
		assert.Equal(t, i, h.Hour)
	}
	assert.Equal(t, 1, night.Hourly[1].Orders)
	assert.Equal(t, 1, night.Hourly[2].Orders)
	assert.Equal(t, 0, night.Hourly[4].Orders)
	require.Len(t, night.Payments, 2)
	assert.Equal(t, "Cartão", night.Payments[0].Method)
}

func TestHourlyTotals(t *testing.T) {
	hours := HourlyTotals(fixture().Valid)
	require.Len(t, hours, 24)
	assert.Equal(t, 1, hours[20].Orders)
	assert.Equal(t, 50.0, hours[20].Revenue)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatBRL(1234.56))
	assert.Equal(t, "R$ 0,00", FormatBRL(0))
}
