// ABOUTME: Per-entity sync orchestration
// ABOUTME: Window, fetch, normalize, merge-write, then watermark commit
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/hublake/hubspot"
	"github.com/harperreed/hublake/models"
	"github.com/harperreed/hublake/normalize"
	"github.com/harperreed/hublake/watermark"
)

// Fetcher is the slice of the API client the runner needs; tests supply a
// fake.
type Fetcher interface {
	SearchWindow(ctx context.Context, spec hubspot.SearchSpec, window models.FetchWindow) ([]hubspot.RawRecord, error)
	DualSearchWindow(ctx context.Context, spec hubspot.SearchSpec, modifiedProp string, window models.FetchWindow) ([]hubspot.RawRecord, error)
	ListObjects(ctx context.Context, objectType string, properties []string, associations []string) ([]hubspot.RawRecord, error)
	Owners(ctx context.Context) ([]hubspot.Owner, error)
	Pipelines(ctx context.Context, objectType string) ([]hubspot.Pipeline, error)
}

// Runner executes one entity sync end to end. The ordering is load-bearing:
// rows land in the partition store before the watermark moves, so a crash
// between the two refetches instead of losing data.
type Runner struct {
	fetcher Fetcher
	marks   *watermark.Manager
	writer  *Writer
	runlog  *RunLog // optional
	log     *slog.Logger
	now     func() time.Time
}

func NewRunner(fetcher Fetcher, marks *watermark.Manager, writer *Writer, runlog *RunLog, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		fetcher: fetcher,
		marks:   marks,
		writer:  writer,
		runlog:  runlog,
		log:     log,
		now:     time.Now,
	}
}

// Sync runs one full pass for entity and reports what happened.
func (r *Runner) Sync(ctx context.Context, entity models.EntityType) (models.RunResult, error) {
	runID := uuid.New().String()
	started := r.now()
	window, mode := r.marks.Window(ctx, entity, started)

	log := r.log.With("run_id", runID, "entity", entity, "mode", mode)
	log.Info("sync starting", "window", window.String())
	r.logStart(runID, entity, mode, started)

	result := models.RunResult{
		RunID:     runID,
		Entity:    entity,
		Mode:      mode,
		StartedAt: started,
	}

	records, skipped, commitMark, err := r.collect(ctx, entity, mode, window)
	if err != nil {
		r.logFinish(runID, models.RunStatusError, result, err)
		return result, err
	}
	result.Skipped = skipped

	stats, err := r.writer.Write(ctx, entity, mode, records)
	result.Written = len(records)
	result.Partitions = stats.Partitions
	if err != nil {
		r.logFinish(runID, models.RunStatusError, result, err)
		return result, fmt.Errorf("sync %s: %w", entity, err)
	}

	if entity.Incremental() && commitMark {
		maxCreated, maxModified := observedMaxima(records)
		if err := r.marks.Commit(ctx, entity, maxCreated, maxModified, len(records), r.now()); err != nil {
			// Data is safely landed; the worst case is refetching the same
			// window next run, which the merge absorbs.
			log.Warn("watermark commit failed, next run will refetch", "error", err)
		}
	}

	result.Duration = r.now().Sub(started)
	r.logFinish(runID, models.RunStatusOK, result, nil)
	log.Info("sync finished",
		"written", result.Written, "skipped", result.Skipped,
		"partitions", result.Partitions, "duration", result.Duration)
	return result, nil
}

// collect fetches and normalizes the entity's records. commitMark reports
// whether the watermark may advance afterward; it is false when part of the
// fetch was skipped, so the skipped slice is retried next run.
func (r *Runner) collect(ctx context.Context, entity models.EntityType, mode string, window models.FetchWindow) (records []models.Record, skipped int, commitMark bool, err error) {
	switch entity {
	case models.EntityDeals:
		records, skipped, err = r.collectObject(ctx, hubspot.DealSpec(), hubspot.DealModifiedProp, mode, window,
			[]string{"companies", "contacts"}, normalize.Deal)
		return records, skipped, true, err
	case models.EntityContacts:
		records, skipped, err = r.collectObject(ctx, hubspot.ContactSpec(), hubspot.ContactModifiedProp, mode, window,
			nil, normalize.Contact)
		return records, skipped, true, err
	case models.EntityCompanies:
		records, skipped, err = r.collectObject(ctx, hubspot.CompanySpec(), hubspot.CompanyModifiedProp, mode, window,
			nil, normalize.Company)
		return records, skipped, true, err
	case models.EntityActivities:
		return r.collectActivities(ctx, mode, window)
	case models.EntityOwners:
		records, skipped, err = r.collectOwners(ctx)
		return records, skipped, false, err
	case models.EntityPipelines:
		records, err = r.collectPipelines(ctx)
		return records, 0, false, err
	}
	return nil, 0, false, fmt.Errorf("unknown entity %q", entity)
}

func (r *Runner) collectObject(ctx context.Context, spec hubspot.SearchSpec, modifiedProp, mode string, window models.FetchWindow, associations []string, norm func(hubspot.RawRecord) (models.Record, error)) ([]models.Record, int, error) {
	var raw []hubspot.RawRecord
	var err error
	if mode == models.ModeMerge {
		raw, err = r.fetcher.DualSearchWindow(ctx, spec, modifiedProp, window)
	} else {
		raw, err = r.fetcher.ListObjects(ctx, spec.ObjectType, spec.Properties, associations)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", spec.ObjectType, err)
	}

	records := make([]models.Record, 0, len(raw))
	skipped := 0
	for _, rr := range raw {
		rec, err := norm(rr)
		if err != nil {
			skipped++
			r.log.Debug("skipping malformed record", "object", spec.ObjectType, "id", rr.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// collectActivities walks the engagement sub-objects. One sub-object failing
// does not abort the others, but it does hold the watermark back so the
// failed slice is refetched next run.
func (r *Runner) collectActivities(ctx context.Context, mode string, window models.FetchWindow) ([]models.Record, int, bool, error) {
	var records []models.Record
	skipped := 0
	failures := 0
	specs := hubspot.ActivitySpecs()

	for _, as := range specs {
		var raw []hubspot.RawRecord
		var err error
		if mode == models.ModeMerge {
			raw, err = r.fetcher.DualSearchWindow(ctx, as.Spec, hubspot.ActivityModifiedProp, window)
		} else {
			raw, err = r.fetcher.ListObjects(ctx, as.ObjectType, as.Spec.Properties, nil)
		}
		if err != nil {
			failures++
			r.log.Warn("activity sub-object fetch failed, skipping", "object", as.ObjectType, "error", err)
			continue
		}

		for _, rr := range raw {
			rec, err := normalize.Activity(as, rr)
			if err != nil {
				skipped++
				r.log.Debug("skipping malformed activity", "object", as.ObjectType, "id", rr.ID, "error", err)
				continue
			}
			records = append(records, rec)
		}
	}

	if failures == len(specs) {
		return nil, skipped, false, fmt.Errorf("all %d activity sub-objects failed", failures)
	}
	return records, skipped, failures == 0, nil
}

func (r *Runner) collectOwners(ctx context.Context) ([]models.Record, int, error) {
	owners, err := r.fetcher.Owners(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch owners: %w", err)
	}
	records := make([]models.Record, 0, len(owners))
	skipped := 0
	for _, o := range owners {
		rec, err := normalize.Owner(o)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

func (r *Runner) collectPipelines(ctx context.Context) ([]models.Record, error) {
	pipelines, err := r.fetcher.Pipelines(ctx, "deals")
	if err != nil {
		return nil, fmt.Errorf("fetch pipelines: %w", err)
	}
	return normalize.PipelineStages(pipelines), nil
}

func observedMaxima(records []models.Record) (*time.Time, *time.Time) {
	var maxCreated, maxModified *time.Time
	for i := range records {
		if c := records[i].CreatedAt; c != nil && (maxCreated == nil || c.After(*maxCreated)) {
			maxCreated = c
		}
		if m := records[i].ModifiedAt; m != nil && (maxModified == nil || m.After(*maxModified)) {
			maxModified = m
		}
	}
	return maxCreated, maxModified
}

func (r *Runner) logStart(runID string, entity models.EntityType, mode string, started time.Time) {
	if r.runlog == nil {
		return
	}
	if err := r.runlog.Start(runID, entity, mode, started); err != nil {
		r.log.Warn("run log write failed", "error", err)
	}
}

func (r *Runner) logFinish(runID, status string, res models.RunResult, runErr error) {
	if r.runlog == nil {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	if err := r.runlog.Finish(runID, status, res, msg, r.now()); err != nil {
		r.log.Warn("run log write failed", "error", err)
	}
}
