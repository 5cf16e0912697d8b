package seed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/salescope/salescope/internal/schema"
	"github.com/salescope/salescope/internal/storage"
)

const defaultPartRows = 2000

type PublishSummary struct {
	Objects int   `json:"objects"`
	Bytes   int64 `json:"bytes"`
}

// Publish writes the dataset as parquet parts under datasets/<table>/,
// where the embedded warehouse profile reads them at open. Sales rows are
// split into parts so multi-part listings get exercised in dev.
func Publish(ctx context.Context, store storage.ObjectStore, ds Dataset, partRows int) (PublishSummary, error) {
	if store == nil {
		return PublishSummary{}, fmt.Errorf("object store is required")
	}
	if partRows <= 0 {
		partRows = defaultPartRows
	}

	summary := PublishSummary{}

	for sequence, chunk := range chunkRows(ds.Sales, partRows) {
		data, err := encodeParquet(chunk)
		if err != nil {
			return summary, fmt.Errorf("encode %s part: %w", schema.TableSales, err)
		}
		if err := putPart(ctx, store, schema.TableSales, sequence, data, &summary); err != nil {
			return summary, err
		}
	}

	data, err := encodeParquet(ds.Products)
	if err != nil {
		return summary, fmt.Errorf("encode %s part: %w", schema.TableProducts, err)
	}
	if err := putPart(ctx, store, schema.TableProducts, 0, data, &summary); err != nil {
		return summary, err
	}

	data, err = encodeParquet(ds.Vehicles)
	if err != nil {
		return summary, fmt.Errorf("encode %s part: %w", schema.TableVehicles, err)
	}
	if err := putPart(ctx, store, schema.TableVehicles, 0, data, &summary); err != nil {
		return summary, err
	}

	return summary, nil
}

func putPart(ctx context.Context, store storage.ObjectStore, table string, sequence int, data []byte, summary *PublishSummary) error {
	key, err := storage.BuildDatasetPath(table, sequence)
	if err != nil {
		return err
	}
	info, err := store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("upload dataset part %s: %w", key, err)
	}
	summary.Objects++
	summary.Bytes += info.Size
	return nil
}
