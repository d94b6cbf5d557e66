package agecalc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwestphal/quill/pkg/api"
	"github.com/mwestphal/quill/pkg/logging"
)

func runAction(t *testing.T, input map[string]string) (*api.ActionResult, []api.Event) {
	t.Helper()
	a := NewAction(logging.Discard())
	a.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	var events []api.Event
	res, err := a.Run(context.Background(), api.ActionBody{Input: input}, func(e api.Event) { events = append(events, e) })
	require.NoError(t, err)
	require.NotNil(t, res)
	return res, events
}

func TestRun_ComputesAgeSummary(t *testing.T) {
	res, events := runAction(t, map[string]string{"birth_datetime": "1990-05-15 10:30"})

	require.NotNil(t, res.Reply)
	assert.Contains(t, res.Reply.Content, "36 years")
	assert.Contains(t, res.Reply.Content, "Space travel:")
	assert.Contains(t, res.Reply.Content, "billion km")

	last := events[len(events)-1]
	assert.Equal(t, api.StatusComplete, last.Data.Status)
	assert.True(t, last.Data.Done)
	assert.Equal(t, res.Reply.Content, last.Data.Description)
}

func TestRun_CustomCurrentDate(t *testing.T) {
	res, _ := runAction(t, map[string]string{
		"birth_datetime":   "2000-01-01 00:00",
		"current_datetime": "2010-01-01 00:00",
	})

	require.NotNil(t, res.Reply)
	assert.Contains(t, res.Reply.Content, "10 years, 0 months")
}

func TestRun_TimezoneApplied(t *testing.T) {
	res, _ := runAction(t, map[string]string{
		"birth_datetime":   "2000-01-01 00:00",
		"current_datetime": "2000-01-01 06:00",
		"timezone":         "America/New_York",
	})

	require.NotNil(t, res.Reply)
	assert.Contains(t, res.Reply.Content, "6 hours")
}

func TestRun_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	res, events := runAction(t, map[string]string{
		"birth_datetime": "2000-01-01 00:00",
		"timezone":       "Mars/Olympus_Mons",
	})

	require.NotNil(t, res.Reply, "an unknown timezone degrades to UTC, it does not abort")
	var sawWarning bool
	for _, e := range events {
		if e.Data.Status == api.StatusWarning {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning)
}

func TestRun_MissingBirthDate(t *testing.T) {
	res, events := runAction(t, map[string]string{})

	assert.Nil(t, res.Reply)
	last := events[len(events)-1]
	assert.Equal(t, api.StatusError, last.Data.Status)
	assert.Contains(t, last.Data.Description, "birth_datetime")
}

func TestRun_MalformedBirthDate(t *testing.T) {
	res, events := runAction(t, map[string]string{"birth_datetime": "15/05/1990"})

	assert.Nil(t, res.Reply)
	last := events[len(events)-1]
	assert.Equal(t, api.StatusError, last.Data.Status)
}

func TestRun_FutureBirthDate(t *testing.T) {
	res, events := runAction(t, map[string]string{"birth_datetime": "2030-01-01 00:00"})

	assert.Nil(t, res.Reply)
	last := events[len(events)-1]
	assert.Equal(t, api.StatusError, last.Data.Status)
	assert.Contains(t, last.Data.Description, "future")
}
