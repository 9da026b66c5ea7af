package api

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/alextanhongpin/podreport/pkg/channel"
)

func (a *API) channelRoutes(r chi.Router) {
	r.Get("/info", a.channelInfo)
	r.Post("/", a.addChannel)
	r.Put("/{channelId}", a.updateChannel)
	r.Delete("/{channelId}", a.deleteChannel)
}

func (a *API) channelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := a.channels.Info(r.Context())
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, info, "")
}

func (a *API) addChannel(w http.ResponseWriter, r *http.Request) {
	var in channel.CreateInput
	if err := decode(r, &in); err != nil {
		fail(w, r, a.log, err)

		return
	}

	c, err := a.channels.Add(r.Context(), in)
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusCreated, c, "Channel registered successfully")
}

func (a *API) updateChannel(w http.ResponseWriter, r *http.Request) {
	var p channel.Patch
	if err := decode(r, &p); err != nil {
		fail(w, r, a.log, err)

		return
	}

	c, err := a.channels.Update(r.Context(), chi.URLParam(r, "channelId"), p)
	if err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, c, "Channel updated successfully")
}

func (a *API) deleteChannel(w http.ResponseWriter, r *http.Request) {
	if err := a.channels.Delete(r.Context(), chi.URLParam(r, "channelId")); err != nil {
		fail(w, r, a.log, err)

		return
	}

	ok(w, http.StatusOK, nil, "Channel deleted successfully")
}
