package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, "hello", DeriveTitle("hello"))

	exact := strings.Repeat("a", TitleMaxLen)
	assert.Equal(t, exact, DeriveTitle(exact))

	over := strings.Repeat("a", TitleMaxLen+1)
	assert.Equal(t, exact+"...", DeriveTitle(over))
}

func TestDeriveTitleMultibyte(t *testing.T) {
	// 31 runes but far more bytes; truncation must not split a rune
	over := strings.Repeat("é", TitleMaxLen+1)
	got := DeriveTitle(over)
	assert.Equal(t, strings.Repeat("é", TitleMaxLen)+"...", got)
}
