package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardOfficeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"b-1", "B-1"},
		{"B-1", "B-1"},
		{"A-A", "A-a"},
		{"a-a", "A-a"},
		{"Ba", "B-a"},
		{"b1", "B-1"},
		{" b-1 ", "B-1"},
		{"B - 1", "B-1"},
		{"floor", "FLOOR"},
		{"", ""},
		{"  ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StandardOfficeID(tc.in), "input %q", tc.in)
	}
}

func TestSameOffice(t *testing.T) {
	assert.True(t, SameOffice("b-1", "B-1"))
	assert.True(t, SameOffice("Ba", "B-a"))
	assert.True(t, SameOffice("A-A", "a-a"))
	assert.False(t, SameOffice("B-1", "B-2"))
	assert.False(t, SameOffice("", "B-1"), "blank ids never match anything")
	assert.False(t, SameOffice("", ""))
}

func TestOfficeHasFeature(t *testing.T) {
	office := Office{SpecialFeatures: []string{"Group", "sensory-friendly "}}

	assert.True(t, office.HasFeature("group"))
	assert.True(t, office.HasFeature("sensory-friendly"))
	assert.False(t, office.HasFeature("ramp"))

	assert.True(t, office.HasAllFeatures([]string{"group", "sensory-friendly"}))
	assert.False(t, office.HasAllFeatures([]string{"group", "ramp"}))
	assert.True(t, office.HasAllFeatures(nil))
}
