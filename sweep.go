package medialib

import (
	"context"
	"errors"
	"time"

	"github.com/henrlaas/medialib/data"
)

type SweepOptions struct {
	// DryRun only reports findings and never deletes.
	DryRun bool `json:"dry_run"`
}

// SweepReport summarizes one reconciliation pass over a bucket.
type SweepReport struct {
	Bucket           data.BucketContext `json:"bucket"`
	Objects          int                `json:"objects"`
	Rows             int                `json:"rows"`
	MissingMetadata  []string           `json:"missing_metadata"`
	DanglingMetadata []string           `json:"dangling_metadata"`
	Purged           []string           `json:"purged"`
	Busy             []string           `json:"busy"`
}

// Sweep correlates all objects of bucket with all metadata rows.
// Rows without an object are deleted together with their favorite marks unless
// opts.DryRun is set. Objects without a row are only reported, since their
// descriptive data cannot be recovered. Rows held by an in-flight mutation are skipped.
func (l *Library) Sweep(ctx context.Context, bucket data.BucketContext, opts SweepOptions) (report *SweepReport, err error) {
	start := time.Now()
	defer func() { l.metrics.observe("sweep", err, start) }()

	if err := l.checkOpen(); err != nil {
		return nil, err
	}
	if err := bucket.Validate(); err != nil {
		return nil, err
	}

	var objects []*data.StorageObject
	var rows []*data.MediaMetadata

	err = l.retryRead(ctx, "sweep", func(ctx context.Context) error {
		var err error
		if objects, err = l.store.ListObjects(ctx, bucket.String(), "", ""); err != nil {
			return err
		}
		rows, err = l.index.ListMetadata(ctx, bucket.String(), "")
		return err
	})
	if err != nil {
		return nil, err
	}

	report = &SweepReport{
		Bucket:           bucket,
		Objects:          len(objects),
		Rows:             len(rows),
		MissingMetadata:  make([]string, 0),
		DanglingMetadata: make([]string, 0),
		Purged:           make([]string, 0),
		Busy:             make([]string, 0),
	}

	stored := make(map[string]struct{}, len(objects))
	for _, obj := range objects {
		stored[obj.Key] = struct{}{}
	}

	indexed := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		indexed[row.FilePath] = struct{}{}
		if _, exists := stored[row.FilePath]; !exists {
			report.DanglingMetadata = append(report.DanglingMetadata, row.FilePath)
		}
	}

	for _, obj := range objects {
		if data.IsPlaceholder(obj.Key) {
			continue
		}
		if _, exists := indexed[obj.Key]; !exists {
			report.MissingMetadata = append(report.MissingMetadata, obj.Key)
		}
	}

	l.metrics.swept(bucket, data.MissingMetadata, len(report.MissingMetadata))
	l.metrics.swept(bucket, data.DanglingMetadata, len(report.DanglingMetadata))

	if !opts.DryRun {
		for _, key := range report.DanglingMetadata {
			purged, err := l.purgeIfDangling(ctx, bucket, key)
			switch {
			case errors.Is(err, data.ErrConflictingOperation):
				report.Busy = append(report.Busy, key)
			case err != nil:
				l.log.Warn("Failed to purge dangling metadata '%s:%s': %v", bucket, key, err)
			case purged:
				report.Purged = append(report.Purged, key)
			}
		}
	}

	l.log.Info("Swept '%s': %d objects, %d rows, %d missing metadata, %d dangling, %d purged",
		bucket, report.Objects, report.Rows, len(report.MissingMetadata), len(report.DanglingMetadata), len(report.Purged))

	return report, nil
}

// purgeIfDangling removes the row of key under the prefix guard, after checking
// again that the object is still absent.
func (l *Library) purgeIfDangling(ctx context.Context, bucket data.BucketContext, key string) (bool, error) {
	release, err := l.guard.acquire(bucket, key)
	if err != nil {
		return false, err
	}
	defer release()

	_, err = l.store.HeadObject(ctx, bucket.String(), key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, data.ErrNotExist) {
		return false, err
	}

	if err := l.purge(context.WithoutCancel(ctx), bucket, key); err != nil {
		return false, err
	}
	return true, nil
}

// StartSweeper launches a periodic background sweep over the given buckets.
// Returns a stop function to cancel the loop. An invalid interval falls back to 15 minutes.
func (l *Library) StartSweeper(parent context.Context, interval time.Duration, opts SweepOptions, buckets ...data.BucketContext) context.CancelFunc {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if len(buckets) == 0 {
		buckets = data.AllBuckets()
	}

	logger := l.log.Named("sweeper")
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, bucket := range buckets {
					if _, err := l.Sweep(ctx, bucket, opts); err != nil {
						if errors.Is(err, data.ErrClosed) {
							return
						}
						logger.Error("Sweep of '%s' failed: %v", bucket, err)
					}
				}
			}
		}
	}()

	return cancel
}
