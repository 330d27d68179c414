package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labrasa/salesdash/internal/money"
)

// Raw export columns, matched by exact header text after trimming.
const (
	ColOrderID       = "Pedido"
	ColSaleTime      = "Data da venda"
	ColChannel       = "Canal de venda"
	ColCancelled     = "Esta cancelado"
	ColPostalCode    = "CEP"
	ColNeighborhood  = "Bairro"
	ColPaymentMethod = "Forma de pagamento"
	ColItems         = "Itens"
	ColServiceFee    = "Total taxa de serviço"
	ColTotal         = "Total"
	ColDeliveryFee   = "Entrega"
	ColSurcharge     = "Acréscimo"
	ColDiscount      = "Desconto"
)

// Derived columns written to the store.
const (
	ColDate              = "Data"
	ColHour              = "Hora"
	ColWeekday           = "Dia da Semana"
	ColChannelNormalized = "Canal de venda Padronizado"
	ColChannelType       = "Tipo de Canal"
)

// MoneyColumns are coerced to numbers for every row.
var MoneyColumns = []string{ColItems, ColServiceFee, ColTotal, ColDeliveryFee, ColSurcharge, ColDiscount}

// OrderColumns is the stored column order. Every store tab starts with this header.
var OrderColumns = []string{
	ColOrderID, ColSaleTime, ColDate, ColHour, ColWeekday,
	ColChannel, ColChannelNormalized, ColChannelType, ColCancelled,
	ColPostalCode, ColNeighborhood, ColPaymentMethod,
	ColItems, ColServiceFee, ColTotal, ColDeliveryFee, ColSurcharge, ColDiscount,
}

// Channel categories.
const (
	ChannelDelivery = "Delivery"
	ChannelCounter  = "Salão/Telefone"
)

// Cancellation flag values.
const (
	FlagCancelled = "S"
	FlagValid     = "N"
)

// DateLayout is the stored format of the Data column.
const DateLayout = "2006-01-02"

// WeekdayLabels are the sortable weekday names, Monday first.
var WeekdayLabels = []string{
	"1. Segunda", "2. Terça", "3. Quarta", "4. Quinta", "5. Sexta", "6. Sábado", "7. Domingo",
}

// WeekdayLabel names a weekday with its ordinal prefix.
func WeekdayLabel(d time.Weekday) string {
	return WeekdayLabels[(int(d)+6)%7]
}

// Order is one normalized sale.
type Order struct {
	OrderID           string    `json:"order_id"`
	SaleTime          time.Time `json:"sale_time"`
	Date              string    `json:"date,omitempty"`
	Hour              int       `json:"hour"`
	Weekday           string    `json:"weekday,omitempty"`
	Channel           string    `json:"channel"`
	ChannelNormalized string    `json:"channel_normalized"`
	ChannelType       string    `json:"channel_type,omitempty"`
	CancelledFlag     string    `json:"cancelled"`
	PostalCode        string    `json:"postal_code,omitempty"`
	Neighborhood      string    `json:"neighborhood,omitempty"`
	PaymentMethod     string    `json:"payment_method,omitempty"`
	Items             float64   `json:"items"`
	ServiceFee        float64   `json:"service_fee"`
	Total             float64   `json:"total"`
	DeliveryFee       float64   `json:"delivery_fee"`
	Surcharge         float64   `json:"surcharge"`
	Discount          float64   `json:"discount"`
}

// Cancelled reports whether the order carries the cancelled flag.
func (o Order) Cancelled() bool {
	return o.CancelledFlag == FlagCancelled
}

// IsDelivery reports whether the order came through a delivery channel.
func (o Order) IsDelivery() bool {
	return o.ChannelType == ChannelDelivery
}

// Derive fills Date, Hour and Weekday from SaleTime.
func (o *Order) Derive() {
	o.Date = o.SaleTime.Format(DateLayout)
	o.Hour = o.SaleTime.Hour()
	o.Weekday = WeekdayLabel(o.SaleTime.Weekday())
}

// Record renders the order in OrderColumns order.
func (o Order) Record() []string {
	saleTime, hour := "", ""
	if !o.SaleTime.IsZero() {
		saleTime = o.SaleTime.Format(time.RFC3339)
	}
	if o.Date != "" {
		hour = strconv.Itoa(o.Hour)
	}
	return []string{
		o.OrderID, saleTime, o.Date, hour, o.Weekday,
		o.Channel, o.ChannelNormalized, o.ChannelType, o.CancelledFlag,
		o.PostalCode, o.Neighborhood, o.PaymentMethod,
		formatFloat(o.Items), formatFloat(o.ServiceFee), formatFloat(o.Total),
		formatFloat(o.DeliveryFee), formatFloat(o.Surcharge), formatFloat(o.Discount),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// legacy layouts written by earlier versions of the sheet
// CanonicalOrderID trims an order id and drops the float suffix a
// spreadsheet adds to numeric ids ("12345.0").
func CanonicalOrderID(s string) string {
	s = strings.TrimSpace(s)
	whole, frac, ok := strings.Cut(s, ".")
	if !ok || whole == "" || strings.Trim(frac, "0") != "" || !allDigits(whole) {
		return s
	}
	return whole
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// ParseOrder decodes a stored record by column name so reordered or extra
// columns are tolerated. Stored times without an offset are read in loc.
func ParseOrder(h Header, record []string, loc *time.Location) (Order, error) {
	o := Order{
		OrderID:           CanonicalOrderID(h.Get(record, ColOrderID)),
		Date:              h.Get(record, ColDate),
		Weekday:           h.Get(record, ColWeekday),
		Channel:           h.Get(record, ColChannel),
		ChannelNormalized: h.Get(record, ColChannelNormalized),
		ChannelType:       h.Get(record, ColChannelType),
		CancelledFlag:     h.Get(record, ColCancelled),
		PostalCode:        h.Get(record, ColPostalCode),
		Neighborhood:      h.Get(record, ColNeighborhood),
		PaymentMethod:     h.Get(record, ColPaymentMethod),
		Items:             money.Parse(h.Get(record, ColItems)),
		ServiceFee:        money.Parse(h.Get(record, ColServiceFee)),
		Total:             money.Parse(h.Get(record, ColTotal)),
		DeliveryFee:       money.Parse(h.Get(record, ColDeliveryFee)),
		Surcharge:         money.Parse(h.Get(record, ColSurcharge)),
		Discount:          money.Parse(h.Get(record, ColDiscount)),
	}
	if o.OrderID == "" {
		return o, fmt.Errorf("record has no %s", ColOrderID)
	}

	if raw := h.Get(record, ColSaleTime); raw != "" {
		t, err := parseStoredTime(raw, loc)
		if err != nil {
			return o, fmt.Errorf("order %s: %w", o.OrderID, err)
		}
		o.SaleTime = t
	}

	if hour := h.Get(record, ColHour); hour != "" {
		n, err := strconv.Atoi(hour)
		if err != nil {
			return o, fmt.Errorf("order %s: invalid hour %q", o.OrderID, hour)
		}
		o.Hour = n
	}
	if o.Date == "" && !o.SaleTime.IsZero() && !o.Cancelled() {
		o.Derive()
	}
	return o, nil
}

func parseStoredTime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range storedTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized sale time %q", raw)
}
