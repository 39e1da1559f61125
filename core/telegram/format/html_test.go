package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeAndBold(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;Rex &amp; co&lt;/b&gt;", Escape("<b>Rex & co</b>"))
	assert.Equal(t, "<b>Tom &amp; Jerry</b>", Bold("Tom & Jerry"))
	assert.Equal(t, "· <b>Name</b>: Rex\n", Field("Name", "Rex"))
	assert.Equal(t, "· <b>Other names</b>: -\n", Field("Other names", " "))
}

func TestDates(t *testing.T) {
	ts := time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-01", Date(ts))
	assert.Equal(t, "2024-05-01 13:45 UTC", DateTime(ts))
	assert.Equal(t, "3 hours ago", Ago(ts, ts.Add(3*time.Hour)))
}

func TestDistance(t *testing.T) {
	assert.Equal(t, "223 m", Distance(0.2226))
	assert.Equal(t, "0 m", Distance(0))
	assert.Equal(t, "2.5 km", Distance(2.46))
	assert.Equal(t, "3 km", Distance(3))
}
