package report

import "github.com/alextanhongpin/podreport/pkg/youtube"

const (
	InsightEarlyDropOff = "Early drop-off detected – strengthen hooks in first 30 seconds."
	InsightMobile       = "Most viewers on mobile – optimize thumbnails & titles for small screens."
	InsightGrowing      = "Channel growing – keep consistent uploads to reach 10K views."
	InsightStrong       = "Strong performance across metrics – keep it up!"
)

// Rule thresholds.
const (
	lowRetention  = 40
	mobileShare   = 70
	viewMilestone = 10000
)

// Insights applies the fixed rules to a; it never returns an empty list.
func Insights(a *youtube.Analytics) []string {
	var insights []string

	if a.AvgRetention < lowRetention {
		insights = append(insights, InsightEarlyDropOff)
	}
	if a.Devices["mobile"] > mobileShare {
		insights = append(insights, InsightMobile)
	}
	if a.Views < viewMilestone {
		insights = append(insights, InsightGrowing)
	}

	if len(insights) == 0 {
		insights = append(insights, InsightStrong)
	}

	return insights
}
