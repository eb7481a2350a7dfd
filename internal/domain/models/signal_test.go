package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangePercent(t *testing.T) {
	cases := map[float64]string{
		0.00149:  "+0.149%",
		0.00151:  "+0.151%",
		-0.0016:  "-0.160%",
		0:        "+0.000%",
		0.021234: "+2.123%",
	}
	for change, want := range cases {
		assert.Equal(t, want, Signal{Change: change}.ChangePercent())
	}
}

func TestRoundPValue(t *testing.T) {
	assert.Equal(t, 0.03123, RoundPValue(0.0312345678))
	assert.Equal(t, 1.0, RoundPValue(1))
	assert.Equal(t, 0.1, RoundPValue(0.099999999))
}

func TestRegimeActiveUsesUnroundedPValue(t *testing.T) {
	s := NewRegimeState(RollingScore{PValue: 0.099999999}, 0.10)
	assert.True(t, s.Active)
	assert.Equal(t, 0.1, RoundPValue(s.PValue))
}
