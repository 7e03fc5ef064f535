package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	haystack := []string{"OS", "target_arch", "host_arch", "component"}
	assert.Equal(t, []string{"target_arch"}, Suggest("targt_arch", haystack, MaxSuggestionDistance))
	assert.Equal(t, []string{"host_arch"}, Suggest("hst_arch", haystack, 4))
	assert.Empty(t, Suggest("wibble", haystack, 1))
}

func TestPrettyPrintSuggestion(t *testing.T) {
	assert.Equal(t, "", PrettyPrintSuggestion("wibble", []string{"OS"}, 1))
	assert.Equal(t, "\nMaybe you meant OS ?", PrettyPrintSuggestion("Os", []string{"OS"}, 2))
	assert.Equal(t, "\nMaybe you meant ab , ac or abc ?", PrettyPrintSuggestion("a", []string{"ab", "ac", "abc"}, 2))
}
