package agecalc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mwestphal/quill/apps/server/internal/plugin"
	"github.com/mwestphal/quill/pkg/api"
)

// ActionID is the plugin ID the host addresses this action by.
const ActionID = "age-travel"

// datetimeLayout is the input format for birth and override dates.
const datetimeLayout = "2006-01-02 15:04"

// Action computes the caller's age and cosmic travel distance. Input keys:
// "birth_datetime" (required, "YYYY-MM-DD HH:MM"), "timezone" (optional IANA
// name, default UTC) and "current_datetime" (optional override for
// hypothetical "how old would I be on date X" questions).
type Action struct {
	log *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

var _ plugin.Action = (*Action)(nil)

// NewAction creates an Action.
func NewAction(log *slog.Logger) *Action {
	return &Action{log: log, now: time.Now}
}

// ID implements plugin.Action.
func (a *Action) ID() string { return ActionID }

// Run parses the inputs, computes the age components and replies with a
// summary line. Input problems are reported as error events, never as a
// failed call.
func (a *Action) Run(_ context.Context, body api.ActionBody, emit plugin.Emit) (*api.ActionResult, error) {
	emit(api.StatusEvent("Starting age calculation", api.StatusInProgress, false))

	loc := time.UTC
	if tz := body.Input["timezone"]; tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			emit(api.StatusEvent(fmt.Sprintf("Unknown timezone %q, using UTC", tz), api.StatusWarning, false))
		} else {
			loc = parsed
		}
	}

	birthInput := body.Input["birth_datetime"]
	if birthInput == "" {
		emit(api.StatusEvent("Missing birth_datetime input (YYYY-MM-DD HH:MM)", api.StatusError, true))
		return &api.ActionResult{}, nil
	}
	birth, err := time.ParseInLocation(datetimeLayout, birthInput, loc)
	if err != nil {
		emit(api.StatusEvent(
			fmt.Sprintf("Could not parse birth date %q: expected YYYY-MM-DD HH:MM", birthInput),
			api.StatusError, true))
		return &api.ActionResult{}, nil
	}

	now := a.now().In(loc)
	if override := body.Input["current_datetime"]; override != "" {
		now, err = time.ParseInLocation(datetimeLayout, override, loc)
		if err != nil {
			emit(api.StatusEvent(
				fmt.Sprintf("Could not parse current date %q: expected YYYY-MM-DD HH:MM", override),
				api.StatusError, true))
			return &api.ActionResult{}, nil
		}
	}
	if now.Before(birth) {
		emit(api.StatusEvent("Birth date is in the future", api.StatusError, true))
		return &api.ActionResult{}, nil
	}

	age := ComputeAge(birth, now)
	distance := FormatDistance(SpaceTravelKM(age))

	summary := fmt.Sprintf(
		"Time alive: %d years, %d months (approximate), %d days, %d hours, %d minutes | Space travel: %s",
		age.Years, age.Months, age.Days, age.Hours, age.Minutes, distance)

	a.log.Info("age computed", "birth", birthInput, "timezone", loc.String())
	emit(api.StatusEvent(summary, api.StatusComplete, true))
	return &api.ActionResult{Reply: &api.Message{Role: api.RoleAssistant, Content: summary}}, nil
}
