package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedAdvancesByStep(t *testing.T) {
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewFixed(start, time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())

	c.Set(start)
	assert.Equal(t, "2026-03-01T09:00:00.000000000Z", NowISO(c))
}

func TestFormatParseRoundTrip(t *testing.T) {
	in := time.Date(2026, 3, 1, 9, 0, 0, 123456789, time.FixedZone("CET", 3600))
	out, err := Parse(Format(in))
	require.NoError(t, err)
	assert.True(t, in.Equal(out))
	assert.Equal(t, time.UTC, out.Location())
}

func TestFormatSortsInTimeOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 5, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(100 * time.Millisecond),
		base.Add(120 * time.Millisecond),
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
	}
	for i := 1; i < len(times); i++ {
		assert.Less(t, Format(times[i-1]), Format(times[i]))
	}

	legacy, err := Parse("2026-03-01T09:00:05.5Z")
	require.NoError(t, err)
	assert.Equal(t, base.Add(500*time.Millisecond), legacy)
}

func TestSystemIsUTC(t *testing.T) {
	assert.Equal(t, time.UTC, System{}.Now().Location())
}
