package dataset

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

const geoIDProperty = "GEO_ID"

// ReadCountyIDs reads the county reference GeoJSON at path and returns the
// FIPS code of every feature, in file order. Geometry is skipped without being
// decoded; the national file is mostly coordinates.
func ReadCountyIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ids, err := decodeCountyIDs(f)
	if err != nil {
		return nil, fmt.Errorf("read county list %s: %w", path, err)
	}
	return ids, nil
}

func decodeCountyIDs(r io.Reader) ([]string, error) {
	iter := jsoniter.Parse(jsoniter.ConfigCompatibleWithStandardLibrary, r, 64*1024)

	var ids []string
	var convErr error
	sawFeatures := false
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field != "features" {
			iter.Skip()
			continue
		}
		sawFeatures = true
		for iter.ReadArray() {
			geoID, ok := readFeatureGeoID(iter)
			if convErr != nil || iter.Error != nil {
				continue
			}
			if !ok {
				convErr = fmt.Errorf("feature %d: %w: properties.%s", len(ids), domain.ErrMissingColumn, geoIDProperty)
				continue
			}
			id, err := domain.FIPSFromGeoID(geoID)
			if err != nil {
				convErr = fmt.Errorf("feature %d: %w", len(ids), err)
				continue
			}
			ids = append(ids, id)
		}
	}
	// The document ends at the closing brace, so io.EOF here means truncation.
	if iter.Error != nil {
		return nil, fmt.Errorf("decode geojson: %w", iter.Error)
	}
	if convErr != nil {
		return nil, convErr
	}
	if !sawFeatures {
		return nil, fmt.Errorf("%w: features", domain.ErrMissingColumn)
	}
	return ids, nil
}

// readFeatureGeoID consumes one feature object and returns properties.GEO_ID.
func readFeatureGeoID(iter *jsoniter.Iterator) (string, bool) {
	var geoID string
	found := false
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field != "properties" {
			iter.Skip()
			continue
		}
		for prop := iter.ReadObject(); prop != ""; prop = iter.ReadObject() {
			if prop != geoIDProperty || iter.WhatIsNext() != jsoniter.StringValue {
				iter.Skip()
				continue
			}
			geoID = iter.ReadString()
			found = true
		}
	}
	return geoID, found
}

// WriteCountyIDs writes a minimal county reference GeoJSON with one
// geometry-less feature per FIPS code.
func WriteCountyIDs(path string, ids []string) error {
	type properties struct {
		GeoID string `json:"GEO_ID"`
	}
	type feature struct {
		Type       string     `json:"type"`
		Properties properties `json:"properties"`
		Geometry   any        `json:"geometry"`
	}
	doc := struct {
		Type     string    `json:"type"`
		Features []feature `json:"features"`
	}{Type: "FeatureCollection", Features: make([]feature, len(ids))}
	for i, id := range ids {
		doc.Features[i] = feature{Type: "Feature", Properties: properties{GeoID: "0500000US" + id}}
	}

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode county list: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
