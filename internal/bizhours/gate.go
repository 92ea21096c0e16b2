// Package bizhours decides whether the support desk is currently staffed.
package bizhours

import (
	"context"
	"fmt"
	"strings"
	"time"

	// Embedded zone database so Asia/Seoul resolves on minimal images.
	_ "time/tzdata"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-chat-delivery/internal/config"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/logger"
	"gitlab.com/timkado/api/daisi-chat-delivery/pkg/utils"
)

// Status is what clients see from the status endpoint.
type Status struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
}

// HolidayChecker reports whether a calendar date is a closing holiday.
type HolidayChecker interface {
	IsHolidayAndClosed(ctx context.Context, date time.Time) (bool, error)
}

// AlwaysOpen never reports a holiday.
type AlwaysOpen struct{}

func (AlwaysOpen) IsHolidayAndClosed(context.Context, time.Time) (bool, error) {
	return false, nil
}

// Policy is the parsed weekly schedule.
type Policy struct {
	Location      *time.Location
	Open          time.Duration // offset from local midnight, inclusive
	Close         time.Duration // offset from local midnight, exclusive
	Workdays      map[time.Weekday]bool
	OpenMessage   string
	ClosedMessage string
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "SUNDAY": time.Sunday,
	"MON": time.Monday, "MONDAY": time.Monday,
	"TUE": time.Tuesday, "TUESDAY": time.Tuesday,
	"WED": time.Wednesday, "WEDNESDAY": time.Wednesday,
	"THU": time.Thursday, "THURSDAY": time.Thursday,
	"FRI": time.Friday, "FRIDAY": time.Friday,
	"SAT": time.Saturday, "SATURDAY": time.Saturday,
}

// NewPolicy parses the business hours configuration.
func NewPolicy(cfg config.BusinessHoursConfig) (Policy, error) {
	tz := cfg.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid business hours time zone %q: %w", tz, err)
	}

	open, err := parseClock(cfg.Open)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid business hours open: %w", err)
	}
	closeAt, err := parseClock(cfg.Close)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid business hours close: %w", err)
	}
	if closeAt <= open {
		return Policy{}, fmt.Errorf("business hours close %s must be after open %s", cfg.Close, cfg.Open)
	}

	workdays := make(map[time.Weekday]bool, len(cfg.Workdays))
	for _, name := range cfg.Workdays {
		day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return Policy{}, fmt.Errorf("invalid workday %q", name)
		}
		workdays[day] = true
	}

	return Policy{
		Location:      loc,
		Open:          open,
		Close:         closeAt,
		Workdays:      workdays,
		OpenMessage:   cfg.OpenMessage,
		ClosedMessage: cfg.ClosedMessage,
	}, nil
}

func parseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Gate answers open/closed questions against a Policy and a holiday calendar.
type Gate struct {
	policy   Policy
	holidays HolidayChecker
	now      func() time.Time
}

// NewGate builds a gate; a nil checker means no holidays.
func NewGate(policy Policy, holidays HolidayChecker) *Gate {
	if holidays == nil {
		holidays = AlwaysOpen{}
	}
	return &Gate{policy: policy, holidays: holidays, now: utils.Now}
}

// IsOpen reports whether t falls on a workday, inside the window and not on a closing holiday.
// A failing holiday lookup is logged and ignored.
func (g *Gate) IsOpen(ctx context.Context, t time.Time) bool {
	local := t.In(g.policy.Location)
	if !g.policy.Workdays[local.Weekday()] {
		return false
	}

	y, m, d := local.Date()
	sinceMidnight := local.Sub(time.Date(y, m, d, 0, 0, 0, 0, g.policy.Location))
	if sinceMidnight < g.policy.Open || sinceMidnight >= g.policy.Close {
		return false
	}

	closed, err := g.holidays.IsHolidayAndClosed(ctx, local)
	if err != nil {
		logger.FromContext(ctx).Warn("Holiday lookup failed, assuming a regular day",
			zap.Time("at", local), zap.Error(err))
		return true
	}
	return !closed
}

// CurrentStatus evaluates the gate at the current instant.
func (g *Gate) CurrentStatus(ctx context.Context) Status {
	if g.IsOpen(ctx, g.now()) {
		return Status{Open: true, Message: g.policy.OpenMessage}
	}
	return Status{Open: false, Message: g.policy.ClosedMessage}
}

// ClosedMessage is the text used for out-of-hours auto-replies.
func (g *Gate) ClosedMessage() string {
	return g.policy.ClosedMessage
}
