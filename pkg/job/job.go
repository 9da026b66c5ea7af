package job

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is the closed set of job kinds the engine knows how to dispatch.
type Type string

const (
	ReportGeneration Type = "report_generation"
)

// Types lists every known kind.
var Types = []Type{ReportGeneration}

func (t Type) String() string {
	return string(t)
}

func (t Type) Valid() bool {
	switch t {
	case ReportGeneration:
		return true
	default:
		return false
	}
}

// Parameters is the structured bag passed to the job handler.
type Parameters struct {
	Period     string   `json:"period" bson:"period"`
	Metrics    []string `json:"metrics,omitempty" bson:"metrics,omitempty"`
	ReportType string   `json:"reportType,omitempty" bson:"reportType,omitempty"`
}

// Value implements driver.Valuer so the parameters can be stored as jsonb.
// lib/pq encodes []byte as bytea, hence the string.
func (p Parameters) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *Parameters) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = Parameters{}

		return nil
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("job: cannot scan %T into parameters", src)
	}
}

type Job struct {
	ID             string     `json:"_id" bson:"_id"`
	UserID         string     `json:"userId" bson:"userId"`
	Name           string     `json:"name" bson:"name"`
	Type           Type       `json:"type" bson:"type"`
	Frequency      Frequency  `json:"frequency" bson:"frequency"`
	Period         string     `json:"period" bson:"period"`
	Parameters     Parameters `json:"parameters" bson:"parameters"`
	CronExpression string     `json:"cronExpression" bson:"cronExpression"`
	IsActive       bool       `json:"isActive" bson:"isActive"`
	NextRun        time.Time  `json:"nextRun" bson:"nextRun"`
	LastRun        *time.Time `json:"lastRun,omitempty" bson:"lastRun,omitempty"`
	RunCount       int        `json:"runCount" bson:"runCount"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// CreateInput is the caller-supplied part of a new job.
type CreateInput struct {
	Name       string      `json:"name"`
	Frequency  Frequency   `json:"frequency"`
	Period     string      `json:"period"`
	Parameters *Parameters `json:"parameters,omitempty"`
}

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidFrequency = errors.New("invalid frequency. Must be daily, weekly, or monthly")
)

func (in CreateInput) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if in.Frequency == "" {
		missing = append(missing, "frequency")
	}
	if strings.TrimSpace(in.Period) == "" {
		missing = append(missing, "period")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}

	if !in.Frequency.Valid() {
		return ErrInvalidFrequency
	}

	return nil
}

// Stats is a point-in-time summary of one owner's jobs.
type Stats struct {
	Total       int               `json:"total"`
	Active      int               `json:"active"`
	Inactive    int               `json:"inactive"`
	ByFrequency map[Frequency]int `json:"byFrequency"`
	// Upcoming lists the owner's armed timers, soonest first.
	Upcoming []Entry `json:"upcoming"`
}

// NewStats tallies jobs.
func NewStats(jobs []Job) *Stats {
	stats := &Stats{
		Total:       len(jobs),
		ByFrequency: make(map[Frequency]int),
		Upcoming:    []Entry{},
	}

	for _, j := range jobs {
		if j.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}

		stats.ByFrequency[j.Frequency]++
	}

	return stats
}
