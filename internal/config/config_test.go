package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIntEnv(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, intEnv("TEST_INT", 7))

	t.Setenv("TEST_INT", "12abc")
	assert.Equal(t, 7, intEnv("TEST_INT", 7), "trailing garbage falls back")

	t.Setenv("TEST_INT", "")
	assert.Equal(t, 7, intEnv("TEST_INT", 7))
}

func TestDurationEnv(t *testing.T) {
	t.Setenv("TEST_DUR", "90s")
	assert.Equal(t, 90*time.Second, durationEnv("TEST_DUR", time.Minute))

	t.Setenv("TEST_DUR", "soon")
	assert.Equal(t, time.Minute, durationEnv("TEST_DUR", time.Minute))
}

func TestBoolEnv(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	assert.True(t, boolEnv("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "0")
	assert.False(t, boolEnv("TEST_BOOL", true))

	t.Setenv("TEST_BOOL", "maybe")
	assert.True(t, boolEnv("TEST_BOOL", true))
}
