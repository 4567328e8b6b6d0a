package receipt

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeComponent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"abcXYZ019", "abcXYZ019"},
		{"-_.!~*'()", "-_.!~*'()"},
		{" ", "%20"},
		{"+", "%2B"},
		{"a&b=c", "a%26b%3Dc"},
		{`{"s":1}`, "%7B%22s%22%3A1%7D"},
		{"/?#", "%2F%3F%23"},
		{"Ç", "%C3%87"},
		{"Ёлка", "%D0%81%D0%BB%D0%BA%D0%B0"},
		{"☕", "%E2%98%95"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := EscapeComponent(tt.in)
			assert.Equal(t, tt.want, got)

			back, err := url.QueryUnescape(got)
			assert.NoError(t, err)
			assert.Equal(t, tt.in, back)
		})
	}
}
