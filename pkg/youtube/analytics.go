package youtube

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"google.golang.org/api/youtubeanalytics/v2"
)

// Analytics is the channel-wide summary a report is built from. Breakdown
// maps hold percentages of the period's views.
type Analytics struct {
	Period            string             `json:"period"`
	StartDate         string             `json:"startDate"`
	EndDate           string             `json:"endDate"`
	Views             int64              `json:"views"`
	WatchTime         int64              `json:"watchTime"`
	Likes             int64              `json:"likes"`
	Comments          int64              `json:"comments"`
	SubscribersGained int64              `json:"subscribersGained"`
	AvgRetention      float64            `json:"avgRetention"`
	RetentionCurve    []float64          `json:"retentionCurve"`
	AgeGroups         map[string]float64 `json:"ageGroups"`
	Gender            map[string]float64 `json:"gender"`
	TopCountries      map[string]float64 `json:"topCountries"`
	TrafficSources    map[string]float64 `json:"trafficSources"`
	Devices           map[string]float64 `json:"devices"`
}

const (
	totalsMetrics = "views,estimatedMinutesWatched,likes,comments,subscribersGained,averageViewPercentage"
	topCountries  = 5
)

type query struct {
	metrics    string
	dimensions string
	sort       string
	maxResults int64
}

// ChannelAnalytics fetches the summary for the channel owning refreshToken.
// Unknown periods fall back to Lifetime.
func (c *Client) ChannelAnalytics(ctx context.Context, refreshToken, period string) (*Analytics, error) {
	return guard(c, func() (*Analytics, error) {
		return c.channelAnalytics(ctx, refreshToken, period)
	})
}

func (c *Client) channelAnalytics(ctx context.Context, refreshToken, period string) (*Analytics, error) {
	start, end, ok := DateRange(period, c.now())
	if !ok {
		c.log.Warn().Str("period", period).Msg("unknown period, using lifetime")
		period = Lifetime
	}

	svc, err := c.analytics(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	run := func(q query) (*youtubeanalytics.QueryResponse, error) {
		call := svc.Reports.Query().
			Ids("channel==MINE").
			StartDate(start.Format(dateLayout)).
			EndDate(end.Format(dateLayout)).
			Metrics(q.metrics).
			Context(ctx)
		if q.dimensions != "" {
			call = call.Dimensions(q.dimensions)
		}
		if q.sort != "" {
			call = call.Sort(q.sort)
		}
		if q.maxResults > 0 {
			call = call.MaxResults(q.maxResults)
		}

		res, err := call.Do()
		if err != nil {
			return nil, upstream(err, "failed to query analytics "+q.dimensions)
		}

		return res, nil
	}

	a := &Analytics{
		Period:    period,
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
	}

	totals, err := run(query{metrics: totalsMetrics})
	if err != nil {
		return nil, err
	}
	if row := firstRow(totals); row != nil {
		a.Views = int64(row["views"])
		a.WatchTime = int64(row["estimatedMinutesWatched"])
		a.Likes = int64(row["likes"])
		a.Comments = int64(row["comments"])
		a.SubscribersGained = int64(row["subscribersGained"])
		a.AvgRetention = round1(row["averageViewPercentage"])
	}

	retention, err := run(query{metrics: "averageViewPercentage", dimensions: "day", sort: "day"})
	if err != nil {
		return nil, err
	}
	for _, row := range rows(retention) {
		a.RetentionCurve = append(a.RetentionCurve, round1(number(row[1])))
	}

	breakdowns := []struct {
		q     query
		into  *map[string]float64
		share bool
		key   func(string) string
	}{
		{query{metrics: "viewerPercentage", dimensions: "ageGroup"}, &a.AgeGroups, false, ageGroup},
		{query{metrics: "viewerPercentage", dimensions: "gender"}, &a.Gender, false, strings.ToLower},
		{query{metrics: "views", dimensions: "country", sort: "-views", maxResults: topCountries}, &a.TopCountries, true, strings.ToUpper},
		{query{metrics: "views", dimensions: "insightTrafficSourceType"}, &a.TrafficSources, true, strings.ToLower},
		{query{metrics: "views", dimensions: "deviceType"}, &a.Devices, true, strings.ToLower},
	}
	for _, b := range breakdowns {
		res, err := run(b.q)
		if err != nil {
			return nil, err
		}

		m := make(map[string]float64)
		for _, row := range rows(res) {
			label, _ := row[0].(string)
			m[b.key(label)] += number(row[1])
		}
		if b.share {
			m = shares(m)
		} else {
			for k, v := range m {
				m[k] = round1(v)
			}
		}
		*b.into = m
	}

	c.log.Debug().
		Str("period", period).
		Int64("views", a.Views).
		Float64("avg_retention", a.AvgRetention).
		Msg("fetched channel analytics")

	return a, nil
}

// firstRow maps the first row of res by column name.
func firstRow(res *youtubeanalytics.QueryResponse) map[string]float64 {
	rs := rows(res)
	if len(rs) == 0 {
		return nil
	}

	row := make(map[string]float64, len(res.ColumnHeaders))
	for i, h := range res.ColumnHeaders {
		if h == nil || i >= len(rs[0]) {
			continue
		}
		row[h.Name] = number(rs[0][i])
	}

	return row
}

// rows drops malformed rows so callers can index [0] and [1].
func rows(res *youtubeanalytics.QueryResponse) [][]interface{} {
	if res == nil {
		return nil
	}

	out := make([][]interface{}, 0, len(res.Rows))
	for _, r := range res.Rows {
		if len(r) >= 2 {
			out = append(out, r)
		}
	}

	return out
}

func number(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}

func shares(m map[string]float64) map[string]float64 {
	var total float64
	for _, v := range m {
		total += v
	}

	out := make(map[string]float64, len(m))
	for k, v := range m {
		if total == 0 {
			out[k] = 0
			continue
		}
		out[k] = round1(v / total * 100)
	}

	return out
}

// ageGroup turns "age18-24" into "18-24".
func ageGroup(s string) string {
	return strings.TrimPrefix(s, "age")
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
