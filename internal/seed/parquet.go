package seed

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

func encodeParquet[T any](rows []T) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func chunkRows[T any](rows []T, size int) [][]T {
	if size <= 0 || len(rows) <= size {
		return [][]T{rows}
	}
	chunks := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}
