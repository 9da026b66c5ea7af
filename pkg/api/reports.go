package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/alextanhongpin/podreport/pkg/report"
)

func (a *API) reportRoutes(r chi.Router) {
	r.With(throttle(a.generateLimit)).Post("/generate", a.generateReport)
	r.Get("/", a.listReports)
	r.Get("/stats", a.reportStats)
	r.Post("/cleanup", a.cleanupReports)
	r.Get("/{id}/download", a.downloadReport)
	r.Delete("/{id}", a.deleteReport)
}

func (a *API) generateReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Period      string             `json:"period"`
		GeneratedBy report.GeneratedBy `json:"generatedBy"`
	}
	if err := decode(r, &body); err != nil {
		fail(w, r, a.log, err)

		return
	}

	rep, err := a.reports.Generate(r.Context(), body.Period, body.GeneratedBy)
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, rep, "Report generated successfully")
}

// listReports answers with a bare array.
func (a *API) listReports(w http.ResponseWriter, r *http.Request) {
	reports, err := a.reports.List(r.Context())
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	writeJSON(w, http.StatusOK, reports)
}

func (a *API) reportStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.reports.Stats(r.Context())
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, stats, "")
}

func (a *API) cleanupReports(w http.ResponseWriter, r *http.Request) {
	res, err := a.reports.Cleanup(r.Context())
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, res, fmt.Sprintf("Cleaned up %d orphaned reports", res.Cleaned))
}

func (a *API) downloadReport(w http.ResponseWriter, r *http.Request) {
	dl, err := a.reports.Download(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

func (a *API) deleteReport(w http.ResponseWriter, r *http.Request) {
	if _, err := a.reports.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, nil, "Report deleted successfully")
}
