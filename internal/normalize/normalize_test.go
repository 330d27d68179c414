package normalize

import (
	"fmt"
	"testing"
	"time"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var exportColumns = []string{
	models.ColOrderID, models.ColSaleTime, models.ColChannel, models.ColCancelled,
	models.ColPostalCode, models.ColNeighborhood, models.ColItems, models.ColServiceFee,
	models.ColTotal, models.ColDeliveryFee, models.ColSurcharge, models.ColDiscount,
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	rule, err := NewTimestampRule("UTC", "America/Maceio")
	require.NoError(t, err)
	return New(Options{
		Timestamps:       rule,
		DeliveryChannels: []string{"IFOOD", "SITE DELIVERY (SAIPOS)", "BRENDI"},
		Now:              func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func row(id, when, channel, flag, cep, bairro, total string) []string {
	return []string{id, when, channel, flag, cep, bairro, "10", "0", total, "5", "0", "0"}
}

func TestNormalizeScenario(t *testing.T) {
	n := newTestNormalizer(t)
	tbl := models.NewTable(exportColumns, [][]string{
		row("A", "15/06/2025 02:30", "IFOOD", "N", "57035-000", "Ponta Verde", "15,50"),
		row("B", "15/06/2025 03:00", "BALCÃO", "S", "", "", "20,00"),
		row("C", "not a date", "BALCÃO", "N", "", "", "30,00"),
	})

	res, err := n.Normalize(tbl)
	require.NoError(t, err)

	require.Len(t, res.Valid, 1)
	require.Len(t, res.Cancelled, 1)
	assert.Equal(t, 1, res.Stats.Malformed)

	a := res.Valid[0]
	assert.Equal(t, "A", a.OrderID)
	assert.Equal(t, models.ChannelDelivery, a.ChannelType)
	assert.Equal(t, 15.5, a.Total)
	assert.Equal(t, "57035000", a.PostalCode)
	assert.Equal(t, "PONTA VERDE", a.Neighborhood)

	b := res.Cancelled[0]
	assert.Equal(t, "B", b.OrderID)
	assert.Equal(t, "", b.Date, "cancelled rows are not derived by default")
	assert.Equal(t, 20.0, b.Total)
}

func TestNormalizeTimezoneDeterminism(t *testing.T) {
	n := newTestNormalizer(t)
	tbl := models.NewTable(exportColumns, [][]string{
		row("1", "15/06/2025 02:30", "IFOOD", "N", "", "", "1"),
	})

	res, err := n.Normalize(tbl)
	require.NoError(t, err)
	require.Len(t, res.Valid, 1)

	o := res.Valid[0]
	assert.Equal(t, "2025-06-14", o.Date)
	assert.Equal(t, 23, o.Hour)
	assert.Equal(t, "6. Sábado", o.Weekday)
	assert.Equal(t, "2025-06-14T23:30:00-03:00", o.SaleTime.Format(time.RFC3339))
}

func TestNormalizePartitionCompleteness(t *testing.T) {
	n := newTestNormalizer(t)
	tbl := models.NewTable(exportColumns, [][]string{
		row("1", "01/06/2025 12:00", "IFOOD", "N", "", "", "1"),
		row("2", "01/06/2025 12:00", "BRENDI", " s ", "", "", "1"),
		row("3", "01/06/2025 12:00", "BALCÃO", "n", "", "", "1"),
		row("4", "01/06/2025 12:00", "BALCÃO", "X", "", "", "1"),
		row("5", "01/06/2025 12:00", "BALCÃO", "", "", "", "1"),
		row("6", "garbage", "BALCÃO", "N", "", "", "1"),
		row("7", "01/06/2030 12:00", "BALCÃO", "N", "", "", "1"),
		row("1", "02/06/2025 12:00", "IFOOD", "N", "", "", "1"),
		row("", "01/06/2025 12:00", "IFOOD", "N", "", "", "1"),
	})

	res, err := n.Normalize(tbl)
	require.NoError(t, err)

	s := res.Stats
	assert.Equal(t, 9, s.Rows)
	assert.Equal(t, 2, s.Valid)
	assert.Equal(t, 1, s.Cancelled)
	assert.Equal(t, 2, s.UnrecognizedFlag)
	assert.Equal(t, map[string]int{"X": 1, "": 1}, s.UnrecognizedFlags)
	assert.Equal(t, 2, s.Malformed)
	assert.Equal(t, 1, s.Future)
	assert.Equal(t, 1, s.DuplicateIDs)
	assert.Equal(t, s.Rows, s.Valid+s.Cancelled+s.Dropped())
	assert.Equal(t, len(res.Valid), s.Valid)
	assert.Equal(t, len(res.Cancelled), s.Cancelled)

	// first occurrence wins inside a batch
	assert.Equal(t, "2025-06-01", res.Valid[0].Date)
}

func TestNormalizeChannelMappingIsTotal(t *testing.T) {
	n := newTestNormalizer(t)
	channels := []string{"IFOOD", "ifood", " Site Delivery (Saipos) ", "BRENDI", "BALCÃO", "TELEFONE", "", "Ífood"}
	rows := make([][]string, 0, len(channels))
	for i, ch := range channels {
		rows = append(rows, row(fmt.Sprint(i), "01/06/2025 12:00", ch, "N", "", "", "1"))
	}

	res, err := n.Normalize(models.NewTable(exportColumns, rows))
	require.NoError(t, err)
	require.Len(t, res.Valid, len(channels))

	want := []string{
		models.ChannelDelivery, models.ChannelDelivery, models.ChannelDelivery, models.ChannelDelivery,
		models.ChannelCounter, models.ChannelCounter, models.ChannelCounter, models.ChannelDelivery,
	}
	for i, o := range res.Valid {
		assert.Contains(t, []string{models.ChannelDelivery, models.ChannelCounter}, o.ChannelType)
		assert.Equal(t, want[i], o.ChannelType, "channel %q", channels[i])
	}
}

func TestNormalizeDeriveCancelled(t *testing.T) {
	rule, err := NewTimestampRule("UTC", "America/Maceio")
	require.NoError(t, err)
	n := New(Options{Timestamps: rule, DeliveryChannels: []string{"IFOOD"}, DeriveCancelled: true})

	res, err := n.Normalize(models.NewTable(exportColumns, [][]string{
		row("9", "15/06/2025 02:30", "IFOOD", "S", "", "", "1"),
	}))
	require.NoError(t, err)
	require.Len(t, res.Cancelled, 1)
	assert.Equal(t, "2025-06-14", res.Cancelled[0].Date)
	assert.Equal(t, models.ChannelDelivery, res.Cancelled[0].ChannelType)
}

func TestNormalizeMoneyNeverNaN(t *testing.T) {
	n := newTestNormalizer(t)
	res, err := n.Normalize(models.NewTable(exportColumns, [][]string{
		{"1", "01/06/2025 12:00", "IFOOD", "N", "", "", "", "abc", "NaN", "R$ 1.234,56", "-", "1.234.567"},
	}))
	require.NoError(t, err)
	require.Len(t, res.Valid, 1)

	o := res.Valid[0]
	assert.Equal(t, 0.0, o.Items)
	assert.Equal(t, 0.0, o.ServiceFee)
	assert.Equal(t, 0.0, o.Total)
	assert.Equal(t, 1234.56, o.DeliveryFee)
	assert.Equal(t, 0.0, o.Surcharge)
	assert.Equal(t, 1234567.0, o.Discount)
}

func TestNormalizeMissingColumns(t *testing.T) {
	n := newTestNormalizer(t)

	_, err := n.Normalize(models.NewTable([]string{models.ColSaleTime, models.ColCancelled}, [][]string{{"x", "N"}}))
	assert.ErrorIs(t, err, ErrMissingColumn)

	res, err := n.Normalize(models.NewTable([]string{models.ColOrderID, models.ColCancelled}, [][]string{{"1", "N"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Malformed)
	assert.Empty(t, res.Valid)
}

func TestNormalizeEmptyInput(t *testing.T) {
	n := newTestNormalizer(t)

	res, err := n.Normalize(&models.Table{})
	require.NoError(t, err)
	assert.Empty(t, res.Valid)
	assert.Empty(t, res.Cancelled)

	res, err = n.Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Stats.Rows)
}
