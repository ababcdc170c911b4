package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRange = errors.New("invalid barcode range")

// NormalizeBarcode trims and upper-cases a scanned or configured value.
func NormalizeBarcode(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}

func alnum(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ValidateRange checks a barcode range definition. Bounds must be
// alphanumeric, share their letter prefix and be ordered.
func ValidateRange(start, end string, points int64) error {
	start, end = NormalizeBarcode(start), NormalizeBarcode(end)
	if !alnum(start) || !alnum(end) {
		return fmt.Errorf("%w: barcodes must be alphanumeric", ErrInvalidRange)
	}
	if points <= 0 {
		return fmt.Errorf("%w: points must be a positive number", ErrInvalidRange)
	}
	sp, sn, ok1 := splitBarcode(start)
	ep, en, ok2 := splitBarcode(end)
	if !ok1 || !ok2 || sp != ep {
		return fmt.Errorf("%w: start and end must share a prefix and end in digits", ErrInvalidRange)
	}
	if sn > en {
		return fmt.Errorf("%w: start must not be after end", ErrInvalidRange)
	}
	return nil
}

// InRange reports whether value lies within [start, end]. Values compare by
// letter prefix, then by their numeric suffix, so "A99" < "A100".
func InRange(value, start, end string) bool {
	vp, vn, ok := splitBarcode(NormalizeBarcode(value))
	if !ok {
		return false
	}
	sp, sn, ok1 := splitBarcode(NormalizeBarcode(start))
	ep, en, ok2 := splitBarcode(NormalizeBarcode(end))
	if !ok1 || !ok2 || vp != sp || vp != ep {
		return false
	}
	return vn >= sn && vn <= en
}

// splitBarcode separates the leading non-digit prefix from the trailing
// number.
func splitBarcode(v string) (prefix string, n uint64, ok bool) {
	i := len(v)
	for i > 0 && v[i-1] >= '0' && v[i-1] <= '9' {
		i--
	}
	if i == len(v) {
		return "", 0, false
	}
	n, err := strconv.ParseUint(v[i:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return v[:i], n, true
}
