package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labrasa/salesdash/internal/models"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("store")

// ErrUnavailable wraps every backend failure. A sync that appends nothing
// returns a result, never this error.
var ErrUnavailable = errors.New("store unavailable")

// Backend is a spreadsheet-like set of named tabs holding rows of text.
// Row 0 of a tab is its header. Reading a tab that does not exist yields no rows.
type Backend interface {
	Read(ctx context.Context, tab string) ([][]string, error)
	// Write replaces the tab content, creating the tab when needed.
	Write(ctx context.Context, tab string, rows [][]string) error
	Append(ctx context.Context, tab string, rows [][]string) error
	// Update rewrites one row; index 0 is the header.
	Update(ctx context.Context, tab string, index int, row []string) error
	Name() string
}

// Table names a logical store table.
type Table string

const (
	TableValid     Table = "valid"
	TableCancelled Table = "cancelled"
)

// Mode controls what happens to incoming orders whose id is already stored.
type Mode string

const (
	// ModeInsertOnly keeps the stored row; the first seen version wins forever.
	ModeInsertOnly Mode = "insert_only"
	// ModeUpsert rewrites the stored row when the incoming version differs.
	ModeUpsert Mode = "upsert"
)

type Options struct {
	ValidTab     string
	CancelledTab string
	Mode         Mode
	// Location is used for stored timestamps that carry no offset.
	Location *time.Location
}

type Store struct {
	backend Backend
	tabs    map[Table]string
	mode    Mode
	loc     *time.Location
}

func New(backend Backend, opts Options) *Store {
	if opts.ValidTab == "" {
		opts.ValidTab = "Página1"
	}
	if opts.CancelledTab == "" {
		opts.CancelledTab = "Cancelados"
	}
	if opts.Mode == "" {
		opts.Mode = ModeInsertOnly
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Store{
		backend: backend,
		tabs: map[Table]string{
			TableValid:     opts.ValidTab,
			TableCancelled: opts.CancelledTab,
		},
		mode: opts.Mode,
		loc:  opts.Location,
	}
}

// Tab returns the backend tab holding a logical table.
func (s *Store) Tab(t Table) string {
	return s.tabs[t]
}

// Mode returns the configured sync mode.
func (s *Store) Mode() Mode {
	return s.mode
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Init writes the header into every empty tab and returns the tables it initialized.
func (s *Store) Init(ctx context.Context) ([]Table, error) {
	var created []Table
	for _, t := range []Table{TableValid, TableCancelled} {
		rows, err := s.backend.Read(ctx, s.Tab(t))
		if err != nil {
			return created, fmt.Errorf("%w: failed to read %q from %s: %v", ErrUnavailable, s.Tab(t), s.backend.Name(), err)
		}
		if len(rows) > 0 {
			continue
		}
		if err := s.backend.Write(ctx, s.Tab(t), [][]string{models.OrderColumns}); err != nil {
			return created, fmt.Errorf("%w: failed to initialize %q on %s: %v", ErrUnavailable, s.Tab(t), s.backend.Name(), err)
		}
		created = append(created, t)
	}
	return created, nil
}

// ReadAll returns the stored rows of a table. An uninitialized tab is an empty table.
func (s *Store) ReadAll(ctx context.Context, t Table) (*models.Table, error) {
	rows, err := s.backend.Read(ctx, s.Tab(t))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %q from %s: %v", ErrUnavailable, s.Tab(t), s.backend.Name(), err)
	}
	return models.FromRows(rows), nil
}

// ReadOrders decodes a stored table. Rows that cannot be decoded are skipped.
func (s *Store) ReadOrders(ctx context.Context, t Table) ([]models.Order, error) {
	tbl, err := s.ReadAll(ctx, t)
	if err != nil {
		return nil, err
	}
	idx := tbl.Index()
	orders := make([]models.Order, 0, tbl.Len())
	skipped := 0
	for _, r := range tbl.Rows {
		o, err := models.ParseOrder(idx, r, s.loc)
		if err != nil {
			skipped++
			log.Debugf("skipping stored row in %q: %v", s.Tab(t), err)
			continue
		}
		orders = append(orders, o)
	}
	if skipped > 0 {
		log.Warningf("skipped %d unreadable rows in %q", skipped, s.Tab(t))
	}
	return orders, nil
}

// SyncResult reports what AppendNew did.
type SyncResult struct {
	Table        Table  `json:"table"`
	Tab          string `json:"tab"`
	Existing     int    `json:"existing"`
	Incoming     int    `json:"incoming"`
	Appended     int    `json:"appended"`
	Updated      int    `json:"updated"`
	Skipped      int    `json:"skipped"`
	Bootstrapped bool   `json:"bootstrapped"`
}

// Changed reports whether the sync wrote anything.
func (r *SyncResult) Changed() bool {
	return r.Appended > 0 || r.Updated > 0
}

// AppendNew writes the orders of batch whose id is not stored yet.
// The tab is read once and the diff is written without re-reading.
// An empty tab is bootstrapped with the header and the whole batch.
// Repeated ids inside batch keep their first occurrence.
func (s *Store) AppendNew(ctx context.Context, t Table, batch []models.Order) (*SyncResult, error) {
	tab := s.Tab(t)
	res := &SyncResult{Table: t, Tab: tab, Incoming: len(batch)}

	stored, err := s.ReadAll(ctx, t)
	if err != nil {
		return nil, err
	}
	res.Existing = stored.Len()

	if len(stored.Columns) == 0 {
		rows := [][]string{models.OrderColumns}
		seen := map[string]bool{}
		for _, o := range batch {
			if seen[o.OrderID] {
				res.Skipped++
				continue
			}
			seen[o.OrderID] = true
			rows = append(rows, o.Record())
		}
		if len(rows) == 1 {
			return res, nil
		}
		if err := s.backend.Write(ctx, tab, rows); err != nil {
			return nil, fmt.Errorf("%w: failed to bootstrap %q: %v", ErrUnavailable, tab, err)
		}
		res.Appended = len(rows) - 1
		res.Bootstrapped = true
		log.Infof("bootstrapped %q with %d rows", tab, res.Appended)
		return res, nil
	}

	idx := stored.Index()
	idCol, ok := idx[models.ColOrderID]
	if !ok {
		return nil, fmt.Errorf("tab %q has no %q column", tab, models.ColOrderID)
	}
	align := newAligner(stored.Columns)
	if missing := align.missing(); len(missing) > 0 {
		log.Warningf("tab %q lacks columns %v, their values will not be stored", tab, missing)
	}

	position := make(map[string]int, stored.Len())
	for i, r := range stored.Rows {
		id := models.CanonicalOrderID(r[idCol])
		if _, dup := position[id]; !dup {
			position[id] = i
		}
	}

	type update struct {
		index int
		row   []string
	}
	var fresh [][]string
	var updates []update
	seen := map[string]bool{}
	for _, o := range batch {
		if seen[o.OrderID] {
			res.Skipped++
			continue
		}
		seen[o.OrderID] = true

		rec := align.record(o)
		pos, exists := position[o.OrderID]
		switch {
		case !exists:
			fresh = append(fresh, rec)
		case s.mode == ModeUpsert && !sameRow(stored.Rows[pos], rec):
			updates = append(updates, update{index: pos + 1, row: rec})
		default:
			res.Skipped++
		}
	}

	if len(fresh) > 0 {
		if err := s.backend.Append(ctx, tab, fresh); err != nil {
			return nil, fmt.Errorf("%w: failed to append to %q: %v", ErrUnavailable, tab, err)
		}
		res.Appended = len(fresh)
	}
	for _, u := range updates {
		if err := s.backend.Update(ctx, tab, u.index, u.row); err != nil {
			return res, fmt.Errorf("%w: failed to update row %d of %q: %v", ErrUnavailable, u.index, tab, err)
		}
		res.Updated++
	}

	log.Infof("%q: %d existing, %d incoming, %d appended, %d updated, %d skipped",
		tab, res.Existing, res.Incoming, res.Appended, res.Updated, res.Skipped)
	return res, nil
}

func sameRow(stored, incoming []string) bool {
	for i := range incoming {
		var v string
		if i < len(stored) {
			v = strings.TrimSpace(stored[i])
		}
		if v != incoming[i] {
			return false
		}
	}
	return true
}

// aligner renders orders in the column order of an existing tab.
type aligner struct {
	columns []string
	from    []int
}

func newAligner(columns []string) aligner {
	pos := models.NewHeader(models.OrderColumns)
	a := aligner{columns: columns, from: make([]int, len(columns))}
	for i, c := range columns {
		if p, ok := pos[c]; ok {
			a.from[i] = p
		} else {
			a.from[i] = -1
		}
	}
	return a
}

func (a aligner) record(o models.Order) []string {
	full := o.Record()
	out := make([]string, len(a.columns))
	for i, p := range a.from {
		if p >= 0 {
			out[i] = full[p]
		}
	}
	return out
}

func (a aligner) missing() []string {
	have := models.NewHeader(a.columns)
	var out []string
	for _, c := range models.OrderColumns {
		if _, ok := have[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}
