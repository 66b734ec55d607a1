package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"filevault/internal/model"
	"filevault/internal/repository"
	"filevault/internal/storage"
)

// SweepResult summarises one reconciliation pass.
type SweepResult struct {
	Scanned int
	Removed int
	Failed  int
}

// Reconciler removes blobs that have no metadata record. Blobs younger than grace are skipped
// so uploads still between blob write and metadata write are left alone.
type Reconciler struct {
	store    storage.Storage
	repo     repository.FileRepository
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// NewReconciler builds a Reconciler. repo should be the backing store, not a cache.
func NewReconciler(store storage.Storage, repo repository.FileRepository, interval, grace time.Duration, log *zap.Logger, m *Metrics) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		store:    store,
		repo:     repo,
		interval: interval,
		grace:    grace,
		log:      log.Named("reconciler"),
		metrics:  m,
		now:      time.Now,
	}
}

// Sweep makes one pass over the bucket. Per-object failures are counted, not returned.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult

	objs, err := r.store.List(ctx, "")
	if err != nil {
		return res, upstream("blob list", err)
	}
	cutoff := r.now().Add(-r.grace)

	for _, obj := range objs {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Scanned++
		if obj.LastModified.After(cutoff) {
			continue
		}
		ownerID, fileID, _, ok := model.ParseBlobKey(obj.Key)
		if !ok {
			r.log.Debug("skipping foreign key", zap.String("blob_key", obj.Key))
			continue
		}

		rec, err := r.repo.Get(ctx, ownerID, fileID)
		switch {
		case err == nil && rec.BlobKey == obj.Key:
			continue
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			res.Failed++
			r.log.Warn("metadata lookup failed", zap.String("blob_key", obj.Key), zap.Error(err))
			continue
		}

		if err := r.store.Delete(ctx, obj.Key); err != nil {
			res.Failed++
			r.log.Warn("orphan delete failed", zap.String("blob_key", obj.Key), zap.Error(err))
			continue
		}
		res.Removed++
		r.metrics.reconciled()
		r.log.Info("orphaned blob removed", zap.String("blob_key", obj.Key))
	}
	return res, nil
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			res, err := r.Sweep(ctx)
			if err != nil {
				r.log.Error("reconcile sweep failed", zap.Error(err))
				continue
			}
			r.log.Info("reconcile sweep done",
				zap.Int("scanned", res.Scanned),
				zap.Int("removed", res.Removed),
				zap.Int("failed", res.Failed),
			)
		}
	}
}
