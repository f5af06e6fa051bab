package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateOf_UsesLocation(t *testing.T) {
	// 23:30 UTC on 1 March is already 2 March in Tokyo.
	instant := time.Date(2026, time.March, 1, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*60*60)

	assert.True(t, DateOf(instant, time.UTC).Equal(Date(2026, time.March, 1)))
	assert.True(t, DateOf(instant, tokyo).Equal(Date(2026, time.March, 2)))
	assert.True(t, DateOf(instant, nil).Equal(Date(2026, time.March, 1)))
}

func TestMock(t *testing.T) {
	start := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	m := NewMock(start)
	assert.Equal(t, start, m.Now())

	m.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), m.Now())

	m.Set(start)
	assert.Equal(t, start, m.Now())
}
