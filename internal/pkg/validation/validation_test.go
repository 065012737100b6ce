package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("resident@campus.edu"))
	assert.False(t, IsValidEmail("resident@campus"))
	assert.False(t, IsValidEmail("not an email"))
	assert.False(t, IsValidEmail(""))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("s3cret!pass"))
	assert.False(t, IsValidPassword("short1!"))
	assert.False(t, IsValidPassword("nodigits!here"))
	assert.False(t, IsValidPassword("nospecials123"))
}

func TestIsValidLeaseWindow(t *testing.T) {
	start := day(2026, 9, 1)
	assert.True(t, IsValidLeaseWindow(start, day(2027, 6, 30)))
	assert.False(t, IsValidLeaseWindow(start, start))
	assert.False(t, IsValidLeaseWindow(start, day(2026, 8, 1)))
}

func TestIsWithinWindow(t *testing.T) {
	start, end := day(2026, 9, 1), day(2027, 6, 30)
	assert.True(t, IsWithinWindow(day(2026, 10, 1), start, end))
	assert.True(t, IsWithinWindow(start, start, end))
	assert.True(t, IsWithinWindow(end, start, end))
	assert.False(t, IsWithinWindow(day(2026, 8, 31), start, end))
	assert.False(t, IsWithinWindow(day(2027, 7, 1), start, end))
}

func TestWindowsOverlap(t *testing.T) {
	assert.True(t, WindowsOverlap(day(2026, 9, 1), day(2027, 6, 30), day(2027, 1, 1), day(2027, 12, 31)))
	// Touching at a single day still counts.
	assert.True(t, WindowsOverlap(day(2026, 9, 1), day(2026, 12, 31), day(2026, 12, 31), day(2027, 6, 30)))
	assert.False(t, WindowsOverlap(day(2026, 9, 1), day(2026, 12, 31), day(2027, 1, 1), day(2027, 6, 30)))
}
