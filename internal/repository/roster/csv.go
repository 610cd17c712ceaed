package roster

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
)

// CSVLoader reads the roster from a local CSV file.
type CSVLoader struct {
	path     string
	encoding string
}

// NewCSVLoader creates a loader for path with the given encoding (auto, utf-8, shift_jis).
func NewCSVLoader(path, encoding string) *CSVLoader {
	return &CSVLoader{path: path, encoding: encoding}
}

// Load reads and parses the whole file. Any failure yields ErrDataSource and no rows.
func (l *CSVLoader) Load(_ context.Context) ([]legislator.Legislator, error) {
	data, err := os.ReadFile(filepath.Clean(l.path))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrDataSource, l.path, err)
	}
	return ParseCSV(data, l.encoding)
}

// ParseCSV decodes and parses roster CSV bytes. The first record is the header and must
// contain a name column. Rows with an empty name are skipped.
func ParseCSV(data []byte, encoding string) ([]legislator.Legislator, error) {
	text, err := Decode(data, encoding)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: roster is empty", domain.ErrDataSource)
		}
		return nil, fmt.Errorf("%w: read header: %w", domain.ErrDataSource, err)
	}

	cols, ok := mapHeader(header)
	if !ok {
		return nil, fmt.Errorf("%w: roster has no name column", domain.ErrDataSource)
	}

	var rows []legislator.Legislator
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: parse csv: %w", domain.ErrDataSource, err)
		}
		l := cols.row(rec)
		if l.Name == "" {
			continue
		}
		rows = append(rows, l)
	}
	return rows, nil
}
