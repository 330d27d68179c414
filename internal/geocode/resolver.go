package geocode

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/op/go-logging"
	"github.com/sourcegraph/conc/pool"
)

var log = logging.MustGetLogger("geocode")

// DefaultWorkers bounds concurrent lookups.
const DefaultWorkers = 15

// Lookuper resolves a single postal code.
type Lookuper interface {
	Lookup(ctx context.Context, code string) (Entry, error)
}

// Resolver fills the cache for postal codes it has not seen yet.
type Resolver struct {
	cache   *Cache
	client  Lookuper
	workers int
}

func NewResolver(cache *Cache, client Lookuper, workers int) *Resolver {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Resolver{cache: cache, client: client, workers: workers}
}

func (r *Resolver) Cache() *Cache { return r.cache }

// FetchResult counts the outcome of one refresh.
type FetchResult struct {
	Requested int `json:"requested"`
	Resolved  int `json:"resolved"`
	Failed    int `json:"failed"`
}

type lookupResult struct {
	code  string
	entry Entry
	err   error
}

// FetchAndStore looks codes up concurrently and appends the hits to the cache.
// Failed lookups are skipped and retried on a later run. The returned error
// only reports a cache write failure.
func (r *Resolver) FetchAndStore(ctx context.Context, codes []string) (*FetchResult, error) {
	res := &FetchResult{Requested: len(codes)}
	if len(codes) == 0 {
		return res, nil
	}

	p := pool.NewWithResults[lookupResult]().WithMaxGoroutines(r.workers)
	for _, code := range codes {
		p.Go(func() lookupResult {
			e, err := r.client.Lookup(ctx, code)
			return lookupResult{code: code, entry: e, err: err}
		})
	}
	results := p.Wait()

	var failures *multierror.Error
	entries := make([]Entry, 0, len(results))
	for _, lr := range results {
		if lr.err != nil {
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", lr.code, lr.err))
			continue
		}
		entries = append(entries, lr.entry)
	}
	res.Failed = len(codes) - len(entries)
	if failures != nil {
		log.Debugf("%d postal code lookups failed: %v", res.Failed, failures.ErrorOrNil())
	}

	n, err := r.cache.Append(entries)
	if err != nil {
		return res, err
	}
	res.Resolved = n
	log.Infof("geocoded %d of %d postal codes (%d failed)", res.Resolved, res.Requested, res.Failed)
	return res, nil
}

// Refresh geocodes the postal codes of orders that are missing from the cache.
func (r *Resolver) Refresh(ctx context.Context, orders []models.Order) (*FetchResult, error) {
	codes := make([]string, 0, len(orders))
	for _, o := range orders {
		codes = append(codes, o.PostalCode)
	}
	return r.FetchAndStore(ctx, r.cache.LookupMissing(codes))
}
