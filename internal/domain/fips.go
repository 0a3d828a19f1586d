package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fipsWidth is the fixed width of a county FIPS code (2-digit state + 3-digit county).
const fipsWidth = 5

// NormalizeFIPS coerces a county identifier into its canonical 5-character,
// left-zero-padded string form. Numeric inputs are accepted because CSV readers
// and spreadsheets routinely drop leading zeros ("1001" or 1001 -> "01001").
// Float inputs must be whole numbers ("1001.0" is a common spreadsheet artifact).
func NormalizeFIPS(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return normalizeFIPSString(x)
	case int:
		return formatFIPS(int64(x))
	case int32:
		return formatFIPS(int64(x))
	case int64:
		return formatFIPS(x)
	case uint32:
		return formatFIPS(int64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return "", fmt.Errorf("%w: %v", ErrInvalidFIPS, x)
		}
		return formatFIPS(int64(x))
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidFIPS, v)
	}
}

// MustFIPS is NormalizeFIPS for literals known to be valid. It panics otherwise.
func MustFIPS(v any) string {
	f, err := NormalizeFIPS(v)
	if err != nil {
		panic(err)
	}
	return f
}

// FIPSFromGeoID extracts the county FIPS from a Census GEO_ID such as
// "0500000US01001". The identifier is the trailing five characters.
func FIPSFromGeoID(geoID string) (string, error) {
	geoID = strings.TrimSpace(geoID)
	if len(geoID) < fipsWidth {
		return "", fmt.Errorf("%w: geo id %q", ErrInvalidFIPS, geoID)
	}
	return normalizeFIPSString(geoID[len(geoID)-fipsWidth:])
}

func normalizeFIPSString(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidFIPS)
	}
	// Spreadsheet exports sometimes render integer ids as "1001.0".
	if whole, frac, ok := strings.Cut(s, "."); ok && strings.Trim(frac, "0") == "" {
		if whole == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidFIPS, s)
		}
		s = whole
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidFIPS, s)
		}
	}
	if len(s) > fipsWidth {
		return "", fmt.Errorf("%w: %q longer than %d digits", ErrInvalidFIPS, s, fipsWidth)
	}
	return strings.Repeat("0", fipsWidth-len(s)) + s, nil
}

func formatFIPS(n int64) (string, error) {
	if n < 0 || n > 99999 {
		return "", fmt.Errorf("%w: %d", ErrInvalidFIPS, n)
	}
	return normalizeFIPSString(strconv.FormatInt(n, 10))
}
