package domain

import (
	"fmt"
	"math"
	"time"
)

// CountyCell is one county of a rendered layer. ColorVal is nil where the
// county fails a threshold or sits outside the selected market; renderers draw
// it as absent rather than as the bottom of the scale.
type CountyCell struct {
	FIPS     string   `json:"fips"`
	Score    *float64 `json:"score"`
	Passes   bool     `json:"passes"`
	ColorVal *float64 `json:"color_val"`
}

// MapLayer is the payload handed to the choropleth renderer.
type MapLayer struct {
	Priority    string       `json:"priority"`
	Label       string       `json:"label"`
	ColorScale  string       `json:"color_scale"`
	Range       [2]float64   `json:"range_color"`
	Market      string       `json:"market,omitempty"`
	Title       string       `json:"title,omitempty"`
	Center      *MapCenter   `json:"center,omitempty"`
	Thresholds  Thresholds   `json:"thresholds"`
	Passing     int          `json:"passing"`
	Counties    []CountyCell `json:"counties"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewMapLayer converts a projected table into a renderable layer. When market
// is non-nil only that market's counties are kept, which zooms the view.
func NewMapLayer(projected *Table, priority string, thresholds Thresholds, market *Market) (*MapLayer, error) {
	if !projected.HasColumn(ColumnColorVal) {
		return nil, fmt.Errorf("%w: %q, run Project first", ErrMissingColumn, ColumnColorVal)
	}
	if !projected.HasColumn(priority) {
		return nil, fmt.Errorf("%w: priority column %q", ErrUnknownColumn, priority)
	}

	layer := &MapLayer{
		Priority:    priority,
		Label:       priority,
		ColorScale:  ColorScale(priority),
		Range:       [2]float64{MinScore, MaxScore},
		Thresholds:  thresholds,
		GeneratedAt: Now(),
	}

	rows := projected
	if market != nil {
		allow, err := NewAllowList(market.Counties...)
		if err != nil {
			return nil, fmt.Errorf("market %q: %w", market.Name, err)
		}
		rows = projected.Subset(allow.Allows)
		layer.Market = market.Name
		layer.Title = fmt.Sprintf("%s - %s Score", market.Name, priority)
	}

	layer.Counties = make([]CountyCell, rows.Len())
	for i := range layer.Counties {
		cell := CountyCell{
			FIPS:     rows.FIPSAt(i),
			Score:    nullable(rows.Value(i, priority)),
			Passes:   rows.Value(i, ColumnPasses) == 1,
			ColorVal: nullable(rows.Value(i, ColumnColorVal)),
		}
		if cell.ColorVal != nil {
			layer.Passing++
		}
		layer.Counties[i] = cell
	}
	return layer, nil
}

// nullable maps NaN to nil so the cell encodes as JSON null.
func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}
