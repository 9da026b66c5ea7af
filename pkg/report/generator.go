package report

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/channel"
	"github.com/alextanhongpin/podreport/pkg/storage"
	"github.com/alextanhongpin/podreport/pkg/youtube"
)

// Image size of a chart inside the document.
const (
	imageWidth  = 650
	imageHeight = 366
)

// ChannelFinder resolves the channel reports are generated for.
type ChannelFinder interface {
	FindLinked(ctx context.Context) (*channel.Channel, error)
}

// AnalyticsReader fetches channel analytics for a period.
type AnalyticsReader interface {
	ChannelAnalytics(ctx context.Context, refreshToken, period string) (*youtube.Analytics, error)
}

// Observer is told about every generation attempt.
type Observer interface {
	ObserveReport(generatedBy GeneratedBy, ok bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveReport(GeneratedBy, bool, time.Duration) {}

type Options struct {
	Period      string
	GeneratedBy GeneratedBy
}

// Generator turns analytics into a stored document and a Report record.
type Generator struct {
	channels  ChannelFinder
	analytics AnalyticsReader
	storage   storage.Storage
	store     Store
	observer  Observer
	log       zerolog.Logger
	now       func() time.Time
}

func NewGenerator(channels ChannelFinder, analytics AnalyticsReader, st storage.Storage, store Store, logger zerolog.Logger) *Generator {
	return &Generator{
		channels:  channels,
		analytics: analytics,
		storage:   st,
		store:     store,
		observer:  nopObserver{},
		log:       logger.With().Str("pkg", "report").Logger(),
		now:       time.Now,
	}
}

// SetObserver replaces the no-op observer.
func (g *Generator) SetObserver(o Observer) {
	g.observer = o
}

// Generate runs the whole pipeline. The record is written only after the
// document is stored, so every Report points at an existing artifact.
func (g *Generator) Generate(ctx context.Context, opts Options) (r *Report, err error) {
	start := time.Now()
	defer func() {
		g.observer.ObserveReport(opts.GeneratedBy, err == nil, time.Since(start))
	}()

	ch, err := g.channels.FindLinked(ctx)
	if err != nil {
		return nil, err
	}

	a, err := g.analytics.ChannelAnalytics(ctx, ch.RefreshToken, opts.Period)
	if err != nil {
		return nil, err
	}

	charts, err := Charts(a)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	insights := Insights(a)
	now := g.now()
	name := ch.DisplayName()

	doc, err := render(name, now, charts, insights)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	obj, err := g.storage.Put(ctx, Filename(name, now), doc, ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to store document: %w", apperr.ErrUpstream, err)
	}

	r = &Report{
		ID:          uuid.NewString(),
		ChannelID:   ch.ChannelID,
		Title:       Title(now),
		Period:      opts.Period,
		FilePath:    obj.Path,
		URL:         obj.URL,
		PublicID:    obj.Key,
		Insights:    insights,
		GeneratedBy: opts.GeneratedBy,
		GeneratedAt: now,
	}
	if err := g.store.Create(ctx, r); err != nil {
		if derr := g.storage.Delete(ctx, obj.Key); derr != nil {
			g.log.Err(derr).Str("key", obj.Key).Msg("failed to delete orphaned document")
		}

		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	g.log.Info().
		Str("report_id", r.ID).
		Str("channel_id", r.ChannelID).
		Str("period", r.Period).
		Str("generated_by", string(r.GeneratedBy)).
		Str("path", r.FilePath).
		Msg("report generated")

	return r, nil
}

func render(channelName string, now time.Time, charts [][]byte, insights []string) ([]byte, error) {
	doc := NewDocument()
	doc.Title("YouTube Podcast Performance Report")
	doc.Heading(channelName, true)
	doc.Paragraph("Generated: "+now.Format("1/2/2006"), true)

	for _, c := range charts {
		doc.Image(c, imageWidth, imageHeight)
	}

	doc.Heading("Key Insights", false)
	for _, in := range insights {
		doc.Paragraph("• "+in, false)
	}

	return doc.Bytes()
}

// Title is "Report – <Month YYYY>".
func Title(t time.Time) string {
	return "Report – " + t.Format("January 2006")
}

var unsafeRun = regexp.MustCompile(`[\s/\\]+`)

// Filename is Report_<name>_<unix millis>.docx with whitespace runs in name
// replaced by underscores.
func Filename(channelName string, t time.Time) string {
	return fmt.Sprintf("Report_%s_%d.docx", unsafeRun.ReplaceAllString(channelName, "_"), t.UnixMilli())
}
