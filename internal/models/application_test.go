package models

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeAt(t *testing.T) {
	dob := time.Date(2017, 6, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"day before birthday", time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC), 7},
		{"on birthday", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), 8},
		{"day after birthday", time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), 8},
		{"end of year", time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC), 8},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AgeAt(dob, tc.now))
		})
	}
}

func TestAgeAtLeapDayBirthday(t *testing.T) {
	dob := time.Date(2016, 2, 29, 0, 0, 0, 0, time.UTC)

	// In a non-leap year the anniversary normalises to Mar 1.
	assert.Equal(t, 8, AgeAt(dob, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9, AgeAt(dob, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestAgeAtNeverNegative(t *testing.T) {
	dob := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, AgeAt(dob, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSensitiveRedaction(t *testing.T) {
	value := Sensitive("peanut allergy, epipen in bag")

	assert.Equal(t, "[redacted]", fmt.Sprintf("%v", value))
	assert.Equal(t, "[redacted]", fmt.Sprintf("%s", value))
	assert.NotContains(t, fmt.Sprintf("%#v", value), "peanut")

	raw, err := json.Marshal(value)
	require.NoError(t, err)
	assert.JSONEq(t, `"peanut allergy, epipen in bag"`, string(raw))

	var decoded Sensitive
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, value, decoded)
}

func TestClassAcceptsAge(t *testing.T) {
	min, max := 6, 12
	bounded := Class{AgeMin: &min, AgeMax: &max}
	assert.False(t, bounded.AcceptsAge(5))
	assert.True(t, bounded.AcceptsAge(6))
	assert.True(t, bounded.AcceptsAge(12))
	assert.False(t, bounded.AcceptsAge(13))

	open := Class{}
	assert.True(t, open.AcceptsAge(3))
	assert.True(t, open.AcceptsAge(99))
}
