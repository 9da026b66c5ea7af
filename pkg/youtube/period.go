package youtube

import "time"

// Period descriptors accepted by ChannelAnalytics.
const (
	Lifetime     = "lifetime"
	Last7Days    = "last7days"
	Last28Days   = "last28days"
	Last90Days   = "last90days"
	Last12Months = "last12months"
)

// Periods lists every known descriptor.
var Periods = []string{Lifetime, Last7Days, Last28Days, Last90Days, Last12Months}

var channelEpoch = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

const dateLayout = "2006-01-02"

// DateRange resolves period to an inclusive [start, end] date range ending
// today. Unknown periods resolve to Lifetime and ok is false.
func DateRange(period string, now time.Time) (start, end time.Time, ok bool) {
	y, m, d := now.UTC().Date()
	end = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	switch period {
	case Lifetime:
		return channelEpoch, end, true
	case Last7Days:
		return end.AddDate(0, 0, -7), end, true
	case Last28Days:
		return end.AddDate(0, 0, -28), end, true
	case Last90Days:
		return end.AddDate(0, 0, -90), end, true
	case Last12Months:
		return end.AddDate(-1, 0, 0), end, true
	default:
		return channelEpoch, end, false
	}
}
