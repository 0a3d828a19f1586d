package domain

import (
	"fmt"
	"sort"
)

// Market is a named group of counties shown together in the zoomed view.
// Place and State are the geocoding query for the map center.
type Market struct {
	Name     string   `json:"name"`
	Place    string   `json:"place"`
	State    string   `json:"state"`
	Counties []string `json:"counties"`
}

// RegionMap maps a market name to its counties. It only restricts which
// counties are displayed and never alters scores.
type RegionMap map[string]Market

// CoreMarkets returns the built-in data-center core markets.
func CoreMarkets() RegionMap {
	markets := []Market{
		{Name: "Northern Virginia", Place: "Ashburn", State: "VA",
			Counties: []string{"51107", "51059", "51153", "51600", "51610", "51683", "51685"}},
		{Name: "Southern Ohio (Columbus)", Place: "Columbus", State: "OH",
			Counties: []string{"39049", "39041", "39117", "39089", "39129"}},
		{Name: "Chicago area", Place: "Chicago", State: "IL",
			Counties: []string{"17031", "17043", "17089", "17097", "17111", "17197"}},
		{Name: "Des Moines area", Place: "Des Moines", State: "IA",
			Counties: []string{"19153", "19121", "19135", "19181"}},
		{Name: "Santa Clara", Place: "Santa Clara", State: "CA",
			Counties: []string{"06085", "06081", "06001", "06075"}},
		{Name: "Central Oregon", Place: "Prineville", State: "OR",
			Counties: []string{"41017", "41047", "41051"}},
		{Name: "Denver", Place: "Denver", State: "CO",
			Counties: []string{"08001", "08005", "08013", "08014", "08031", "08035", "08059"}},
		{Name: "Kansas City", Place: "Kansas City", State: "MO",
			Counties: []string{"29095", "29037", "29165", "20091", "20103", "20121"}},
		{Name: "Nashville", Place: "Nashville", State: "TN",
			Counties: []string{"47037", "47147", "47149", "47159", "47187"}},
	}
	out := make(RegionMap, len(markets))
	for _, m := range markets {
		out[m.Name] = m
	}
	return out
}

// Names returns the market names sorted alphabetically.
func (r RegionMap) Names() []string {
	out := make([]string, 0, len(r))
	for n := range r {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Market looks up a market by name.
func (r RegionMap) Market(name string) (Market, error) {
	m, ok := r[name]
	if !ok {
		return Market{}, fmt.Errorf("%w: %q", ErrUnknownRegion, name)
	}
	return m, nil
}

// AllowList returns the counties of the named market. An empty name means no
// restriction and yields a nil list.
func (r RegionMap) AllowList(name string) (AllowList, error) {
	if name == "" {
		return nil, nil
	}
	m, err := r.Market(name)
	if err != nil {
		return nil, err
	}
	return NewAllowList(m.Counties...)
}
