package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

// csvFile is a header-indexed CSV table held in memory.
type csvFile struct {
	path    string
	index   map[string]int
	records [][]string
}

// readCSV loads path and checks that every required column is in the header.
func readCSV(path string, required ...string) (*csvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file: %w", path, domain.ErrMissingColumn)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		// Excel exports prefix the first header with a byte-order mark.
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		index[h] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: %w: %q", path, domain.ErrMissingColumn, col)
		}
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &csvFile{path: path, index: index, records: records}, nil
}

func (c *csvFile) text(row int, col string) string {
	i, ok := c.index[col]
	if !ok || i >= len(c.records[row]) {
		return ""
	}
	return strings.TrimSpace(c.records[row][i])
}

// number parses a numeric cell. Empty and NA cells are missing (nil).
func (c *csvFile) number(row int, col string) (*float64, error) {
	s := c.text(row, col)
	switch strings.ToUpper(s) {
	case "", "NA", "NAN", "NULL":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s line %d column %q: %w", c.path, row+2, col, err)
	}
	return &v, nil
}

func readGridCSV(path string) ([]gridRow, error) {
	c, err := readCSV(path, domain.ColumnFIPS,
		domain.ColumnTransmissionCap, domain.ColumnInterconnectionTimeline, domain.ColumnHVLineProximity)
	if err != nil {
		return nil, err
	}
	rows := make([]gridRow, len(c.records))
	for i := range c.records {
		r := gridRow{FIPS: c.text(i, domain.ColumnFIPS)}
		if r.TransmissionCap, err = c.number(i, domain.ColumnTransmissionCap); err != nil {
			return nil, err
		}
		if r.InterconnectionTimeline, err = c.number(i, domain.ColumnInterconnectionTimeline); err != nil {
			return nil, err
		}
		if r.HVLineProximity, err = c.number(i, domain.ColumnHVLineProximity); err != nil {
			return nil, err
		}
		rows[i] = r
	}
	return rows, nil
}

func readWaterCSV(path string) ([]waterRow, error) {
	c, err := readCSV(path, colCountyFIPS, colAvailability)
	if err != nil {
		return nil, err
	}
	rows := make([]waterRow, len(c.records))
	for i := range c.records {
		r := waterRow{CountyFIPS: c.text(i, colCountyFIPS)}
		if r.AvailabilityScore, err = c.number(i, colAvailability); err != nil {
			return nil, err
		}
		rows[i] = r
	}
	return rows, nil
}

func readFiberCSV(path string) ([]fiberRow, error) {
	c, err := readCSV(path, colGeographyType, colGeographyID, colMobile4GPct)
	if err != nil {
		return nil, err
	}
	rows := make([]fiberRow, 0, len(c.records))
	for i := range c.records {
		r := fiberRow{
			GeographyType: c.text(i, colGeographyType),
			GeographyID:   c.text(i, colGeographyID),
		}
		if r.GeographyType != geographyCounty {
			continue
		}
		if r.Mobile4GPct, err = c.number(i, colMobile4GPct); err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// writeCSV writes a header and records to path.
func writeCSV(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
