package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/salescope/salescope/internal/schema"
	"github.com/salescope/salescope/internal/storage"
)

type Config struct {
	RetentionInterval    time.Duration
	MaxUploadAge         time.Duration
	DatasetCheckInterval time.Duration
	DatasetTables        []string
}

type Service struct {
	ObjectStore storage.ObjectStore
	Config      Config
	Logger      *slog.Logger
	Clock       func() time.Time
}

type RetentionSummary struct {
	ObjectsScanned int   `json:"objects_scanned"`
	ObjectsDeleted int   `json:"objects_deleted"`
	BytesFreed     int64 `json:"bytes_freed"`
	Failures       int   `json:"failures"`
}

type DatasetSummary struct {
	TablesScanned int   `json:"tables_scanned"`
	PartsChecked  int   `json:"parts_checked"`
	TotalBytes    int64 `json:"total_bytes"`
	EmptyTables   int   `json:"empty_tables"`
	MissingParts  int   `json:"missing_parts"`
	EmptyParts    int   `json:"empty_parts"`
	Failures      int   `json:"failures"`
}

func (s *Service) Run(ctx context.Context) error {
	s.ensureDefaults()

	retentionTicker := time.NewTicker(s.Config.RetentionInterval)
	defer retentionTicker.Stop()
	datasetTicker := time.NewTicker(s.Config.DatasetCheckInterval)
	defer datasetTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-retentionTicker.C:
			summary, err := s.RunRetentionOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "upload retention cycle failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil {
				s.Logger.InfoContext(ctx, "upload retention cycle completed", slog.Any("summary", summary))
			}
		case <-datasetTicker.C:
			summary, err := s.RunDatasetCheckOnce(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.ErrorContext(ctx, "dataset check cycle failed", slog.Any("error", err), slog.Any("summary", summary))
				}
				continue
			}
			if s.Logger != nil {
				s.Logger.InfoContext(ctx, "dataset check cycle completed", slog.Any("summary", summary))
			}
		}
	}
}

// RunRetentionOnce deletes archived chat uploads older than MaxUploadAge.
// Uploads are keyed by receive date, so the sweep is a single prefix listing.
func (s *Service) RunRetentionOnce(ctx context.Context) (RetentionSummary, error) {
	s.ensureDefaults()
	if s.ObjectStore == nil {
		return RetentionSummary{}, fmt.Errorf("object store is required")
	}

	cutoff := s.Clock().Add(-s.Config.MaxUploadAge)
	objects, err := s.ObjectStore.List(ctx, storage.UploadPrefix+"/")
	if err != nil {
		retentionRunsTotal.WithLabelValues("failed").Inc()
		return RetentionSummary{}, fmt.Errorf("list archived uploads: %w", err)
	}

	summary := RetentionSummary{ObjectsScanned: len(objects)}
	failures := make([]string, 0)

	for _, object := range objects {
		if !object.LastModified.Before(cutoff) {
			continue
		}
		if err := s.ObjectStore.Delete(ctx, object.Key); err != nil {
			summary.Failures++
			failures = append(failures, fmt.Sprintf("delete upload %s: %v", object.Key, err))
			continue
		}
		summary.ObjectsDeleted++
		summary.BytesFreed += object.Size
	}

	if summary.ObjectsDeleted > 0 {
		uploadsDeletedTotal.Add(float64(summary.ObjectsDeleted))
		uploadsBytesFreedTotal.Add(float64(summary.BytesFreed))
	}
	if len(failures) > 0 {
		retentionRunsTotal.WithLabelValues("failed").Inc()
		return summary, fmt.Errorf("retention encountered %d failure(s): %s", len(failures), strings.Join(failures, "; "))
	}
	retentionRunsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

// RunDatasetCheckOnce verifies that every warehouse table still has its
// parquet parts in the object store. Listings can lag writes, so each part
// is re-checked with a stat call.
func (s *Service) RunDatasetCheckOnce(ctx context.Context) (DatasetSummary, error) {
	s.ensureDefaults()
	if s.ObjectStore == nil {
		return DatasetSummary{}, fmt.Errorf("object store is required")
	}

	summary := DatasetSummary{}
	const maxIssueSamples = 20
	issueSamples := make([]string, 0, maxIssueSamples)
	issueCount := 0
	addIssue := func(message string) {
		issueCount++
		if len(issueSamples) < maxIssueSamples {
			issueSamples = append(issueSamples, message)
		}
	}

	for _, table := range s.Config.DatasetTables {
		summary.TablesScanned++
		prefix, err := storage.DatasetTablePrefix(table)
		if err != nil {
			summary.Failures++
			addIssue(fmt.Sprintf("table %s prefix: %v", table, err))
			continue
		}
		objects, err := s.ObjectStore.List(ctx, prefix)
		if err != nil {
			summary.Failures++
			addIssue(fmt.Sprintf("table %s list parts: %v", table, err))
			continue
		}
		if len(objects) == 0 {
			summary.EmptyTables++
			addIssue(fmt.Sprintf("table %s has no dataset parts", table))
			continue
		}

		for _, object := range objects {
			summary.PartsChecked++
			info, err := s.ObjectStore.Stat(ctx, object.Key)
			if err != nil {
				if errors.Is(err, storage.ErrObjectNotFound) {
					summary.MissingParts++
					addIssue(fmt.Sprintf("table %s missing part %s", table, object.Key))
					continue
				}
				summary.Failures++
				addIssue(fmt.Sprintf("table %s stat part %s: %v", table, object.Key, err))
				continue
			}
			if info.Size == 0 {
				summary.EmptyParts++
				addIssue(fmt.Sprintf("table %s empty part %s", table, object.Key))
				continue
			}
			summary.TotalBytes += info.Size
		}
	}

	if summary.PartsChecked > 0 {
		datasetPartsCheckedTotal.Add(float64(summary.PartsChecked))
	}
	if summary.MissingParts > 0 {
		datasetMissingPartsTotal.Add(float64(summary.MissingParts))
	}
	if summary.EmptyTables > 0 || summary.MissingParts > 0 || summary.EmptyParts > 0 || summary.Failures > 0 {
		datasetCheckRunsTotal.WithLabelValues("failed").Inc()
		extra := issueCount - len(issueSamples)
		if extra > 0 {
			return summary, fmt.Errorf("dataset check found %d issue(s): %s; ... plus %d more", issueCount, strings.Join(issueSamples, "; "), extra)
		}
		return summary, fmt.Errorf("dataset check found %d issue(s): %s", issueCount, strings.Join(issueSamples, "; "))
	}
	datasetCheckRunsTotal.WithLabelValues("completed").Inc()
	return summary, nil
}

func (s *Service) ensureDefaults() {
	if s.Clock == nil {
		s.Clock = time.Now
	}
	if s.Config.RetentionInterval <= 0 {
		s.Config.RetentionInterval = time.Hour
	}
	if s.Config.MaxUploadAge <= 0 {
		s.Config.MaxUploadAge = 30 * 24 * time.Hour
	}
	if s.Config.DatasetCheckInterval <= 0 {
		s.Config.DatasetCheckInterval = 6 * time.Hour
	}
	if len(s.Config.DatasetTables) == 0 {
		s.Config.DatasetTables = []string{schema.TableSales, schema.TableProducts, schema.TableVehicles}
	}
}
