package profile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// CSVSource reads profiles from a CSV export with a header row. The file is
// re-read on every lookup so an updated export is picked up without restart.
type CSVSource struct {
	path string
}

func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Lookup(ctx context.Context, customerID string) (Profile, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return Profile{}, fmt.Errorf("open profile csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return Profile{}, fmt.Errorf("read profile csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	idCol := -1
	for i, h := range header {
		if h == "CustomerID" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return Profile{}, errors.New("profile csv has no CustomerID column")
	}

	for {
		if err := ctx.Err(); err != nil {
			return Profile{}, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return Profile{}, ErrNotFound
		}
		if err != nil {
			return Profile{}, fmt.Errorf("read profile csv: %w", err)
		}
		if idCol >= len(rec) || strings.TrimSpace(rec[idCol]) != customerID {
			continue
		}

		var p Profile
		for i, h := range header {
			if i < len(rec) && h != "" {
				p.Set(h, rec[i])
			}
		}
		return p, nil
	}
}
