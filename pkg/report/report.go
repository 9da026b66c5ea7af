package report

import (
	"context"
	"fmt"
	"time"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

// GeneratedBy tells manual reports from scheduled ones.
type GeneratedBy string

const (
	Manual    GeneratedBy = "manual"
	Scheduled GeneratedBy = "scheduled"
)

func (g GeneratedBy) Valid() bool {
	return g == Manual || g == Scheduled
}

// Report is the record of a rendered and stored document.
type Report struct {
	ID          string      `json:"_id" bson:"_id"`
	ChannelID   string      `json:"channelId" bson:"channelId"`
	Title       string      `json:"title" bson:"title"`
	Period      string      `json:"period" bson:"period"`
	FilePath    string      `json:"filePath" bson:"filePath"`
	URL         string      `json:"url,omitempty" bson:"url,omitempty"`
	PublicID    string      `json:"publicId,omitempty" bson:"publicId,omitempty"`
	Insights    []string    `json:"insights" bson:"insights"`
	GeneratedBy GeneratedBy `json:"generatedBy" bson:"generatedBy"`
	GeneratedAt time.Time   `json:"generatedAt" bson:"generatedAt"`
}

// Summary is the short form listed in Stats.
type Summary struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	GeneratedAt time.Time   `json:"generatedAt"`
	GeneratedBy GeneratedBy `json:"generatedBy"`
}

type Stats struct {
	TotalReports  int         `json:"totalReports"`
	StorageType   string      `json:"storageType"`
	ReportsByType CountByType `json:"reportsByType"`
	RecentReports []Summary   `json:"recentReports"`
}

type CountByType struct {
	Manual    int `json:"manual"`
	Scheduled int `json:"scheduled"`
}

type CleanupResult struct {
	Cleaned   int `json:"cleaned"`
	Remaining int `json:"remaining"`
}

// recentReports is how many summaries Stats carries.
const recentReports = 5

// NewStats summarizes reports, which must be sorted newest first.
func NewStats(reports []Report, storageType string) *Stats {
	stats := &Stats{
		TotalReports:  len(reports),
		StorageType:   storageType,
		RecentReports: []Summary{},
	}

	for i, r := range reports {
		switch r.GeneratedBy {
		case Manual:
			stats.ReportsByType.Manual++
		case Scheduled:
			stats.ReportsByType.Scheduled++
		}

		if i < recentReports {
			stats.RecentReports = append(stats.RecentReports, Summary{
				ID:          r.ID,
				Title:       r.Title,
				GeneratedAt: r.GeneratedAt,
				GeneratedBy: r.GeneratedBy,
			})
		}
	}

	return stats
}

// Store persists report records. The documents themselves live in
// storage.Storage.
type Store interface {
	Create(ctx context.Context, r *Report) error
	FindByID(ctx context.Context, id string) (*Report, error)
	// List returns every report, newest first.
	List(ctx context.Context) ([]Report, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int, error)
}

func notFound(id string) error {
	return fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
}
