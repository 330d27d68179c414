package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/money"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("normalize")

// ErrMissingColumn is returned when a required raw column is absent.
var ErrMissingColumn = errors.New("missing required column")

// RequiredColumns must be present in any non-empty export.
var RequiredColumns = []string{models.ColOrderID, models.ColCancelled}

type Options struct {
	Timestamps       TimestampRule
	DeliveryChannels []string
	// DeriveCancelled also fills date, hour, weekday and channel type on cancelled rows.
	DeriveCancelled bool
	Now             func() time.Time
}

type Normalizer struct {
	rule            TimestampRule
	delivery        map[string]bool
	deriveCancelled bool
	now             func() time.Time
}

func New(opts Options) *Normalizer {
	delivery := make(map[string]bool, len(opts.DeliveryChannels))
	for _, ch := range opts.DeliveryChannels {
		delivery[CanonicalText(ch)] = true
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rule := opts.Timestamps
	if rule.Source == nil {
		rule.Source = time.UTC
	}
	if rule.Local == nil {
		rule.Local = time.UTC
	}
	return &Normalizer{
		rule:            rule,
		delivery:        delivery,
		deriveCancelled: opts.DeriveCancelled,
		now:             now,
	}
}

// Stats accounts for every input row. Rows always equals
// Valid + Cancelled + Malformed + Future + DuplicateIDs + UnrecognizedFlag.
type Stats struct {
	Rows              int            `json:"rows"`
	Valid             int            `json:"valid"`
	Cancelled         int            `json:"cancelled"`
	Malformed         int            `json:"malformed"`
	Future            int            `json:"future"`
	DuplicateIDs      int            `json:"duplicate_ids"`
	UnrecognizedFlag  int            `json:"unrecognized_flag"`
	UnrecognizedFlags map[string]int `json:"unrecognized_flags,omitempty"`
}

// Dropped counts rows that reached neither table.
func (s Stats) Dropped() int {
	return s.Malformed + s.Future + s.DuplicateIDs + s.UnrecognizedFlag
}

type Result struct {
	Valid     []models.Order `json:"valid"`
	Cancelled []models.Order `json:"cancelled"`
	Stats     Stats          `json:"stats"`
}

// ChannelType maps a channel name to Delivery or Salão/Telefone.
func (n *Normalizer) ChannelType(channel string) string {
	if n.delivery[CanonicalText(channel)] {
		return models.ChannelDelivery
	}
	return models.ChannelCounter
}

// Normalize partitions the raw export into valid and cancelled orders.
// Row problems are counted, never returned as errors.
func (n *Normalizer) Normalize(t *models.Table) (*Result, error) {
	res := &Result{
		Valid:     []models.Order{},
		Cancelled: []models.Order{},
		Stats:     Stats{UnrecognizedFlags: map[string]int{}},
	}
	if t.Len() == 0 {
		return res, nil
	}

	idx := t.Index()
	for _, col := range RequiredColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}
	if _, ok := idx[models.ColSaleTime]; !ok {
		log.Warningf("export has no %q column, every row will be dropped", models.ColSaleTime)
	}

	now := n.now().In(n.rule.Local)
	seen := map[string]map[string]bool{
		models.FlagValid:     {},
		models.FlagCancelled: {},
	}

	for i, row := range t.Rows {
		res.Stats.Rows++

		flag := strings.ToUpper(idx.Get(row, models.ColCancelled))
		if flag != models.FlagValid && flag != models.FlagCancelled {
			res.Stats.UnrecognizedFlag++
			res.Stats.UnrecognizedFlags[flag]++
			continue
		}

		o := n.decode(idx, row)
		o.CancelledFlag = flag
		if o.OrderID == "" {
			log.Debugf("row %d: empty order id", i+2)
			res.Stats.Malformed++
			continue
		}

		saleTime, err := n.rule.Localize(idx.Get(row, models.ColSaleTime))
		if err != nil {
			log.Debugf("row %d (order %s): %v", i+2, o.OrderID, err)
			res.Stats.Malformed++
			continue
		}
		o.SaleTime = saleTime

		if flag == models.FlagValid && saleTime.After(now) {
			res.Stats.Future++
			continue
		}

		if seen[flag][o.OrderID] {
			res.Stats.DuplicateIDs++
			continue
		}
		seen[flag][o.OrderID] = true

		if flag == models.FlagCancelled {
			if n.deriveCancelled {
				o.Derive()
				o.ChannelType = n.ChannelType(o.Channel)
			}
			res.Cancelled = append(res.Cancelled, o)
			res.Stats.Cancelled++
			continue
		}

		o.Derive()
		o.ChannelType = n.ChannelType(o.Channel)
		res.Valid = append(res.Valid, o)
		res.Stats.Valid++
	}

	if res.Stats.UnrecognizedFlag > 0 {
		log.Warningf("%d rows with unrecognized %q values: %v",
			res.Stats.UnrecognizedFlag, models.ColCancelled, res.Stats.UnrecognizedFlags)
	}
	log.Infof("normalized %d rows: %d valid, %d cancelled, %d dropped",
		res.Stats.Rows, res.Stats.Valid, res.Stats.Cancelled, res.Stats.Dropped())
	return res, nil
}

func (n *Normalizer) decode(idx models.Header, row []string) models.Order {
	channel := idx.Get(row, models.ColChannel)
	return models.Order{
		OrderID:           OrderID(idx.Get(row, models.ColOrderID)),
		Channel:           channel,
		ChannelNormalized: CanonicalText(channel),
		PostalCode:        PostalCode(idx.Get(row, models.ColPostalCode)),
		Neighborhood:      CanonicalText(idx.Get(row, models.ColNeighborhood)),
		PaymentMethod:     idx.Get(row, models.ColPaymentMethod),
		Items:             money.Parse(idx.Get(row, models.ColItems)),
		ServiceFee:        money.Parse(idx.Get(row, models.ColServiceFee)),
		Total:             money.Parse(idx.Get(row, models.ColTotal)),
		DeliveryFee:       money.Parse(idx.Get(row, models.ColDeliveryFee)),
		Surcharge:         money.Parse(idx.Get(row, models.ColSurcharge)),
		Discount:          money.Parse(idx.Get(row, models.ColDiscount)),
	}
}
