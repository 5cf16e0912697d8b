package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	UploadPrefix  = "uploads"
	DatasetPrefix = "datasets"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// BuildUploadPath places an uploaded file under a date-partitioned key so
// retention can sweep by prefix: uploads/2026/02/19/<id>_<name>.
func BuildUploadPath(receivedAt time.Time, uploadID, filename string) (string, error) {
	if err := validatePathComponent(uploadID, "upload id"); err != nil {
		return "", err
	}
	name := sanitizeFilename(filename)
	ts := receivedAt.UTC()
	return path.Join(
		UploadPrefix,
		fmt.Sprintf("%04d/%02d/%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("%s_%s", uploadID, name),
	), nil
}

// BuildDatasetPath is where the seeder writes a table's parquet parts and
// where the embedded engine looks for them.
func BuildDatasetPath(tableName string, sequence int) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(DatasetPrefix, tableName, fmt.Sprintf("part-%05d.parquet", sequence)), nil
}

// DatasetTablePrefix lists every part of one table, trailing slash included
// so sales_data never matches sales_data_old.
func DatasetTablePrefix(tableName string) (string, error) {
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	return DatasetPrefix + "/" + tableName + "/", nil
}

func sanitizeFilename(filename string) string {
	name := path.Base(strings.TrimSpace(filename))
	name = unsafeFileChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._-")
	if name == "" {
		return "upload.bin"
	}
	return name
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
