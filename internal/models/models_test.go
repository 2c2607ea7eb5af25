package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateTitleCountsRunes(t *testing.T) {
	short := "Drink more water"
	assert.Equal(t, short, TruncateTitle(short))

	// 100 characters but 101 bytes; within the limit, so untouched.
	exact := strings.Repeat("a", 99) + "é"
	assert.Equal(t, exact, TruncateTitle(exact))

	long := strings.Repeat("é", 150)
	got := TruncateTitle(long)
	assert.Equal(t, MaxTitleLength, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(PriorityHigh))
	assert.True(t, ValidPriority(PriorityMedium))
	assert.True(t, ValidPriority(PriorityLow))
	assert.False(t, ValidPriority("urgente"))
	assert.False(t, ValidPriority(""))
}

func TestValidOrigin(t *testing.T) {
	assert.True(t, ValidOrigin(OriginUser))
	assert.True(t, ValidOrigin(OriginAI))
	assert.False(t, ValidOrigin("sistema"))
}

func TestValidLevel(t *testing.T) {
	for _, level := range []string{LevelGreen, LevelLightYellow, LevelYellow, LevelOrange, LevelRed} {
		assert.True(t, ValidLevel(level), level)
	}
	assert.False(t, ValidLevel("morado"))
}
