package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/siting-explorer/internal/domain"
)

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cat, err := Load("")
	require.NoError(t, err)
	assert.Len(t, cat, len(domain.DefaultCatalog()))
}

func TestParse_OverridesCategory(t *testing.T) {
	cat, err := Parse([]byte(`
categories:
  fiber:
    metrics:
      - key: fiber_dist
        label: Fiber backbone distance (km)
        units: km
        range: {min: 0, max: 50, inverse: true, default: 10}
      - key: carrier
        categorical:
          options:
            - {label: Multiple, score: 100}
            - {label: Single, score: 40}
          default: Single
`))
	require.NoError(t, err)

	fiber, err := cat.Spec(domain.CategoryFiber)
	require.NoError(t, err)
	assert.Equal(t, "Connectivity Infrastructure", fiber.Title, "title falls back to the built-in one")
	require.Len(t, fiber.Metrics, 2)
	assert.Equal(t, "carrier", fiber.Metrics[1].Label)

	res, err := domain.ScoreCategory(nil, fiber)
	require.NoError(t, err)
	// fiber_dist 10 on inverse [0,50] = 80, carrier Single = 40.
	assert.InDelta(t, 60.0, res.Overall, 1e-9)

	power, err := cat.Spec(domain.CategoryPower)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCatalog()[domain.CategoryPower].Title, power.Title)
}

func TestParse_CustomExpression(t *testing.T) {
	cat, err := Parse([]byte(`
categories:
  climate:
    title: Climate
    metrics:
      - key: temp
        custom:
          expr: max(0, 100 - abs(v - 60) * 3)
          min: 32
          max: 90
          default: 65
`))
	require.NoError(t, err)

	spec := cat[domain.CategoryClimate].Metrics[0]
	for _, v := range []float64{20, 55, 60, 61.5, 100} {
		got, err := domain.Normalize(domain.Number(v), spec)
		require.NoError(t, err)
		assert.InDelta(t, domain.PeakedTemperature(v), got, 1e-9, "v=%g", v)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"unknown category", "categories:\n  soil:\n    metrics: []\n", domain.ErrUnknownCategory},
		{"regulatory", "categories:\n  regulatory:\n    metrics: []\n", domain.ErrMalformedMetric},
		{"no rule", "categories:\n  land:\n    metrics:\n      - key: parcel\n", domain.ErrMalformedMetric},
		{"two rules", "categories:\n  land:\n    metrics:\n      - key: parcel\n        range: {min: 0, max: 1}\n        custom: {expr: v}\n", domain.ErrMalformedMetric},
		{"bad range", "categories:\n  land:\n    metrics:\n      - key: parcel\n        range: {min: 5, max: 5}\n", domain.ErrMalformedMetric},
		{"bad expression", "categories:\n  land:\n    metrics:\n      - key: parcel\n        custom: {expr: 'v +'}\n", domain.ErrMalformedMetric},
		{"non-numeric expression", "categories:\n  land:\n    metrics:\n      - key: parcel\n        custom: {expr: '\"high\"'}\n", domain.ErrMalformedMetric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("categories:\n  land:\n    metrics:\n      - key: parcel\n        ranged: {min: 0, max: 1}\n"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	cat, err := Parse(nil)
	require.NoError(t, err)
	assert.Len(t, cat, len(domain.DefaultCatalog()))
}

func TestCompile(t *testing.T) {
	fn, err := Compile("v * 2")
	require.NoError(t, err)
	assert.Equal(t, 30.0, fn(15))

	fn, err = Compile("v > 10 ? 100 : 0")
	require.NoError(t, err)
	assert.Equal(t, 100.0, fn(11))
	assert.Equal(t, 0.0, fn(9))

	_, err = Compile("")
	assert.ErrorIs(t, err, domain.ErrMalformedMetric)
	_, err = Compile("w * 2")
	assert.ErrorIs(t, err, domain.ErrMalformedMetric)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  future:\n    metrics:\n      - key: demand\n        range: {min: 0, max: 10}\n"), 0o644))

	cat, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cat[domain.CategoryFuture].Metrics, 1)

	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
