package timefmt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "05 March 2024", FormatDate("2024-03-05"))
	assert.Equal(t, InvalidDate, FormatDate("2024-13-40"))
	assert.Equal(t, InvalidDate, FormatDate(""))
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "2:05:09 PM", FormatTime("14:05:09"))
	assert.Equal(t, "12:00:00 AM", FormatTime("00:00:00"))
	assert.Equal(t, InvalidTime, FormatTime("25:00"))
}

func TestRelative(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "3 minutes ago", Relative(now.Add(-3*time.Minute), now))
	assert.Equal(t, "2 hours ago", Relative(now.Add(-2*time.Hour), now))
	assert.Equal(t, "", Relative(time.Time{}, now))
}
