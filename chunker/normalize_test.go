package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf", "one\r\ntwo\rthree", "one\ntwo\nthree"},
		{"collapses spaces", "a   b\t\tc", "a b c"},
		{"trims lines", "  lead\ntrail   \n", "lead\ntrail"},
		{"keeps one blank line", "para one\n\n\n\n\npara two", "para one\n\npara two"},
		{"whitespace-only lines are blank", "one\n   \n\t\ntwo", "one\n\ntwo"},
		{"drops control characters", "a\x00b\x07c", "abc"},
		{"leading blank lines", "\n\n\nbody", "body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}
