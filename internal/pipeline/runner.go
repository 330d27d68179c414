package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labrasa/salesdash/internal/geocode"
	"github.com/labrasa/salesdash/internal/metrics"
	"github.com/labrasa/salesdash/internal/models"
	"github.com/labrasa/salesdash/internal/normalize"
	"github.com/labrasa/salesdash/internal/runlock"
	"github.com/labrasa/salesdash/internal/source"
	"github.com/labrasa/salesdash/internal/store"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("pipeline")

var (
	ErrRunInProgress     = errors.New("an ETL run is already in progress")
	ErrSourceUnavailable = errors.New("sales export could not be obtained")
	ErrStoreUnavailable  = errors.New("store could not be updated")
)

// Run outcomes
const (
	OutcomeSynced   = "synced"
	OutcomeUpToDate = "up_to_date"
	OutcomeFailed   = "failed"
	OutcomeBusy     = "busy"
)

// Runner executes one ETL run: export → normalize → geocode → store.
type Runner struct {
	Source     source.Source
	Normalizer *normalize.Normalizer
	Store      *store.Store
	// Geocoder is optional; geocoding failures never fail a run.
	Geocoder *geocode.Resolver
	Lock     *runlock.Lock
	Metrics  *metrics.Recorder
	// FetchTimeout bounds obtaining the export, browser session included.
	// Geocoding and the store writes run on the caller's context.
	FetchTimeout time.Duration
	// DryRun normalizes without writing to the store or the geocode cache.
	DryRun bool
}

// RunReport summarizes one run.
type RunReport struct {
	RunID     string               `json:"run_id"`
	Source    string               `json:"source"`
	Started   time.Time            `json:"started"`
	Duration  time.Duration        `json:"duration"`
	DryRun    bool                 `json:"dry_run"`
	Stats     normalize.Stats      `json:"stats"`
	Valid     *store.SyncResult    `json:"valid,omitempty"`
	Cancelled *store.SyncResult    `json:"cancelled,omitempty"`
	Geocode   *geocode.FetchResult `json:"geocode,omitempty"`
}

// Outcome distinguishes a run that stored new rows from one that found nothing new.
func (r *RunReport) Outcome() string {
	if (r.Valid != nil && r.Valid.Changed()) || (r.Cancelled != nil && r.Cancelled.Changed()) {
		return OutcomeSynced
	}
	return OutcomeUpToDate
}

// Appended is the number of new rows across both tables.
func (r *RunReport) Appended() int {
	n := 0
	if r.Valid != nil {
		n += r.Valid.Appended
	}
	if r.Cancelled != nil {
		n += r.Cancelled.Appended
	}
	return n
}

func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), Started: time.Now(), DryRun: r.DryRun}
	if r.Source != nil {
		report.Source = r.Source.Name()
	}

	if r.Lock != nil {
		release, err := r.Lock.TryAcquire()
		if err != nil {
			r.observe(OutcomeBusy, report)
			if errors.Is(err, runlock.ErrBusy) {
				return nil, ErrRunInProgress
			}
			return nil, fmt.Errorf("failed to acquire run lock: %w", err)
		}
		defer release()
	}

	log.Infof("run %s: fetching export from %s", report.RunID, report.Source)
	table, err := r.fetch(ctx)
	if err != nil {
		r.observe(OutcomeFailed, report)
		return report, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	result, err := r.Normalizer.Normalize(table)
	if err != nil {
		r.observe(OutcomeFailed, report)
		return report, fmt.Errorf("failed to normalize export: %w", err)
	}
	report.Stats = result.Stats
	r.recordStats(result.Stats)

	if r.DryRun {
		log.Infof("run %s: dry run, %d valid and %d cancelled rows not stored",
			report.RunID, len(result.Valid), len(result.Cancelled))
		r.observe(OutcomeUpToDate, report)
		return report, nil
	}

	if r.Geocoder != nil {
		geo, err := r.Geocoder.Refresh(ctx, result.Valid)
		if err != nil {
			log.Warningf("run %s: geocode cache not updated: %v", report.RunID, err)
		}
		report.Geocode = geo
		if geo != nil && r.Metrics != nil {
			r.Metrics.AddGeocode("resolved", geo.Resolved)
			r.Metrics.AddGeocode("failed", geo.Failed)
		}
	}

	report.Valid, err = r.Store.AppendNew(ctx, store.TableValid, result.Valid)
	if err != nil {
		r.observe(OutcomeFailed, report)
		return report, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	report.Cancelled, err = r.Store.AppendNew(ctx, store.TableCancelled, result.Cancelled)
	if err != nil {
		r.observe(OutcomeFailed, report)
		return report, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	r.recordSync(report.Valid)
	r.recordSync(report.Cancelled)

	outcome := report.Outcome()
	r.observe(outcome, report)
	log.Infof("run %s: %s, %d new rows in %s", report.RunID, outcome, report.Appended(), report.Duration)
	return report, nil
}

func (r *Runner) fetch(ctx context.Context) (*models.Table, error) {
	if r.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.FetchTimeout)
		defer cancel()
	}
	return r.Source.Fetch(ctx)
}

func (r *Runner) observe(outcome string, report *RunReport) {
	report.Duration = time.Since(report.Started).Round(time.Millisecond)
	if r.Metrics != nil {
		r.Metrics.ObserveRun(outcome, report.Duration)
	}
}

func (r *Runner) recordStats(s normalize.Stats) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.AddNormalized("valid", s.Valid)
	r.Metrics.AddNormalized("cancelled", s.Cancelled)
	r.Metrics.AddNormalized("malformed", s.Malformed)
	r.Metrics.AddNormalized("future", s.Future)
	r.Metrics.AddNormalized("duplicate", s.DuplicateIDs)
	r.Metrics.AddNormalized("unrecognized_flag", s.UnrecognizedFlag)
}

func (r *Runner) recordSync(res *store.SyncResult) {
	if r.Metrics == nil || res == nil {
		return
	}
	r.Metrics.AddSynced(string(res.Table), "appended", res.Appended)
	r.Metrics.AddSynced(string(res.Table), "updated", res.Updated)
	r.Metrics.AddSynced(string(res.Table), "skipped", res.Skipped)
}
