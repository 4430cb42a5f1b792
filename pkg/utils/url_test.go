package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSourceURL(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"https://example.com/recipes/chili", true},
		{"  http://example.com  ", true},
		{"ftp://example.com/file", false},
		{"https://", false},
		{"example.com/recipe", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := ValidateSourceURL(tt.raw)
		assert.Equal(t, tt.ok, err == nil, "url %q: %v", tt.raw, err)
	}
}

func TestHostMatches(t *testing.T) {
	assert.True(t, HostMatches("www.allrecipes.com", "allrecipes.com"))
	assert.True(t, HostMatches("uk.allrecipes.com", "allrecipes.com"))
	assert.False(t, HostMatches("notallrecipes.com", "allrecipes.com"))
	assert.Equal(t, HashURL("https://a.example"), HashURL("https://a.example"))
	assert.Len(t, HashURL("x"), 64)
}
