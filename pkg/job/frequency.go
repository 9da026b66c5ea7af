package job

import "fmt"

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Frequencies lists the closed set in display order.
var Frequencies = []Frequency{Daily, Weekly, Monthly}

func (f Frequency) String() string {
	return string(f)
}

func (f Frequency) Valid() bool {
	switch f {
	case
		Daily,
		Weekly,
		Monthly:
		return true
	default:
		return false
	}
}

// CronExpression returns the fixed schedule for the frequency.
func (f Frequency) CronExpression() (string, error) {
	switch f {
	case Daily:
		return DailyCron, nil
	case Weekly:
		return WeeklyCron, nil
	case Monthly:
		return MonthlyCron, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFrequency, f)
	}
}
