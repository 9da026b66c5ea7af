package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/auth"
	"github.com/alextanhongpin/podreport/pkg/job"
)

func (a *API) jobRoutes(r chi.Router) {
	r.Post("/schedule", a.scheduleJob)
	r.Get("/", a.listJobs)
	r.Get("/stats", a.jobStats)
	r.Delete("/{jobId}", a.cancelJob)
	r.Patch("/{jobId}/status", a.updateJobStatus)
}

func (a *API) scheduleJob(w http.ResponseWriter, r *http.Request) {
	var in job.CreateInput
	if err := decode(r, &in); err != nil {
		fail(w, r, a.log, err)

		return
	}

	j, err := a.jobs.Create(r.Context(), auth.Owner(r.Context()), in)
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusCreated, j, "Job scheduled successfully")
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.jobs.List(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, jobs, "")
}

func (a *API) jobStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.jobs.Stats(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, stats, "")
}

func (a *API) cancelJob(w http.ResponseWriter, r *http.Request) {
	if err := a.jobs.Cancel(r.Context(), auth.Owner(r.Context()), chi.URLParam(r, "jobId")); err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, nil, "Job cancelled successfully")
}

func (a *API) updateJobStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsActive any `json:"isActive"`
	}
	if err := decode(r, &body); err != nil {
		fail(w, r, a.log, err)

		return
	}

	active, isBool := body.IsActive.(bool)
	if !isBool {
		fail(w, r, a.log, fmt.Errorf("%w: isActive must be a boolean", apperr.ErrValidation))

		return
	}

	j, err := a.jobs.UpdateStatus(r.Context(), auth.Owner(r.Context()), chi.URLParam(r, "jobId"), active)
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	state := "deactivated"
	if active {
		state = "activated"
	}

	ok(w, http.StatusOK, j, fmt.Sprintf("Job %s successfully", state))
}
