package job

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Fixed schedules, one per frequency. All of them fire at runHour.
const (
	DailyCron   = "0 9 * * *"
	WeeklyCron  = "0 9 * * 1"
	MonthlyCron = "0 9 1 * *"

	runHour = 9
)

var (
	ErrUnsupportedFrequency = errors.New("job: unsupported frequency")
	ErrUnknownSchedule      = errors.New("job: unknown cron expression")
)

// NextRun returns the next fire time for one of the fixed schedules. The
// result is always strictly after now and is expressed in now's location.
//
// Weekly jobs fire on Mondays; when now is already a Monday the next run is
// a full week away, even if 09:00 has not passed yet.
func NextRun(expr string, now time.Time) (time.Time, error) {
	y, m, d := now.Date()
	loc := now.Location()

	switch expr {
	case DailyCron:
		return time.Date(y, m, d+1, runHour, 0, 0, 0, loc), nil
	case WeeklyCron:
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}

		return time.Date(y, m, d+days, runHour, 0, 0, 0, loc), nil
	case MonthlyCron:
		return time.Date(y, m+1, 1, runHour, 0, 0, 0, loc), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownSchedule, expr)
	}
}

// Validate checks that expr is a standard 5-field cron expression.
func Validate(expr string) error {
	_, err := cron.ParseStandard(expr)

	return err
}
