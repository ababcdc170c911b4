package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAdjustment(t *testing.T) {
	tests := []struct {
		kind   string
		amount int64
		ok     bool
	}{
		{AdjustAdd, 50, true},
		{AdjustRedeem, 10000, true},
		{AdjustAdd, 150, true},
		{AdjustAdd, 0, false},
		{AdjustAdd, 40, false},
		{AdjustAdd, 75, false},
		{AdjustAdd, 10050, false},
		{"gift", 100, false},
	}
	for _, tt := range tests {
		err := ValidateAdjustment(tt.kind, tt.amount)
		if tt.ok {
			assert.NoError(t, err, "%s %d", tt.kind, tt.amount)
		} else {
			assert.ErrorIs(t, err, ErrInvalidAdjustment, "%s %d", tt.kind, tt.amount)
		}
	}
}
