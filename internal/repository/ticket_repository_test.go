package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsPattern(t *testing.T) {
	cases := map[string]string{
		"Printer":    "%printer%",
		"  abc-123 ": "%abc-123%",
		"100%":       `%100\%%`,
		"snake_case": `%snake\_case%`,
		`C:\temp`:    `%c:\\temp%`,
		`\%_`:        `%\\\%\_%`,
	}
	for in, want := range cases {
		assert.Equal(t, want, containsPattern(in), in)
	}
}
