package registry

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"circulight/internal/validation/models"
	dErrors "circulight/pkg/domain-errors"
	"circulight/pkg/platform/sentinel"
)

// File is a registry read from a JSON or CSV file on every Load. The format
// is chosen by extension: ".csv" is CSV, anything else is JSON.
type File struct {
	path string
}

// NewFile returns a file-backed Source.
func NewFile(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("registry file path is required")
	}
	return &File{path: path}, nil
}

// Load reads the file.
func (f *File) Load(ctx context.Context) ([]models.Reference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(f.path)
}

// LoadFile reads references from path. A missing or unreadable file wraps
// sentinel.ErrUnavailable; malformed content is an invalid input error.
func LoadFile(path string) ([]models.Reference, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer fh.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return DecodeCSV(fh)
	}
	return DecodeJSON(fh)
}

// DecodeJSON reads a JSON array of records, keeping array order.
func DecodeJSON(r io.Reader) ([]models.Reference, error) {
	var refs []models.Reference
	if err := json.NewDecoder(r).Decode(&refs); err != nil {
		if errors.Is(err, io.EOF) {
			return []models.Reference{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "decode registry json")
	}
	if refs == nil {
		refs = []models.Reference{}
	}
	return refs, nil
}

var csvColumns = []string{"name", "address", "city", "zip", "id"}

// DecodeCSV reads records with a header row naming some of the columns
// name, address, city, zip and id, in any order. Unknown columns are
// ignored. Rows keep file order.
func DecodeCSV(r io.Reader) ([]models.Reference, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []models.Reference{}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read registry csv header")
	}

	index := make(map[string]int, len(csvColumns))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "registry csv header has no name column")
	}

	field := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	refs := []models.Reference{}
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "read registry csv row")
		}
		refs = append(refs, models.Reference{
			ID: field(row, "id"),
			Record: models.Record{
				Name:       field(row, "name"),
				Address:    field(row, "address"),
				City:       field(row, "city"),
				PostalCode: field(row, "zip"),
			},
		})
	}
	return refs, nil
}
