package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidAdjustment = errors.New("invalid point adjustment")

// ValidateAdjustment checks a manual point adjustment request.
func ValidateAdjustment(kind string, amount int64) error {
	if kind != AdjustAdd && kind != AdjustRedeem {
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalidAdjustment, AdjustAdd, AdjustRedeem)
	}
	if amount < AdjustMin || amount > AdjustMax || amount%AdjustStep != 0 {
		return fmt.Errorf("%w: enter a number between %d-%d, multiple of %d", ErrInvalidAdjustment, AdjustMin, AdjustMax, AdjustStep)
	}
	return nil
}

// ValidStatus reports whether s is an account status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusApproved || s == StatusDisapproved
}
