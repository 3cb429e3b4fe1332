package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "trim", input: "  Zhang Wei  ", expected: "Zhang Wei"},
		{name: "collapse inner whitespace", input: "Zhang \t  Wei", expected: "Zhang Wei"},
		{name: "case preserved", input: "ZHANG wei", expected: "ZHANG wei"},
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: " \n ", expected: ""},
		{name: "cjk", input: " 北京邮电大学 ", expected: "北京邮电大学"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestDerive(t *testing.T) {
	t.Run("empty input yields stable sentinel", func(t *testing.T) {
		assert.Equal(t, "d41d8cd9", Derive(""))
		assert.Equal(t, "d41d8cd9", Derive("   "))
	})

	t.Run("known digest", func(t *testing.T) {
		// md5("hello") = 5d41402abc4b2a76b9719d911017c592
		assert.Equal(t, "5d41402a", Derive("hello"))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Derive("Zhang Wei"), Derive("Zhang Wei"))
	})

	t.Run("padding and inner whitespace collapse", func(t *testing.T) {
		assert.Equal(t, Derive("Zhang Wei"), Derive("  Zhang   Wei "))
	})

	t.Run("case distinguishes entities", func(t *testing.T) {
		assert.NotEqual(t, Derive("Zhang Wei"), Derive("zhang wei"))
	})

	t.Run("default length", func(t *testing.T) {
		assert.Len(t, Derive("anything"), DefaultLength)
	})
}

func TestNewDeriver_Clamps(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{name: "too short", length: 4, want: MinLength},
		{name: "negative", length: -1, want: MinLength},
		{name: "in range", length: 16, want: 16},
		{name: "too long", length: 64, want: MaxLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewDeriver(tt.length)
			assert.Equal(t, tt.want, d.Length())
			assert.Len(t, d.Derive("hello"), tt.want)
		})
	}

	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", NewDeriver(32).Derive("hello"))
}
