package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/voyagen/watchvault/internal/cache"
	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/store"
	"github.com/voyagen/watchvault/internal/validator"
)

func (s *Server) handleListMedia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v := validator.New()
	filter := store.MediaFilter{Title: q.Get("title")}

	switch q.Get("watched") {
	case "":
	case "true", "1":
		watched := true
		filter.Watched = &watched
	case "false", "0":
		watched := false
		filter.Watched = &watched
	default:
		v.AddError("watched", "must be true or false")
	}

	switch mt := models.MediaType(q.Get("mediaType")); {
	case mt == "" || mt == models.MediaTypeAll:
	case mt.Valid():
		filter.MediaType = &mt
	default:
		v.AddError("mediaType", "must be one of all, movie or series")
	}

	if sort := q.Get("sort"); sort != "" {
		v.Check(store.SortAllowed(sort), "sort", "invalid sort value")
		filter.Sort = sort
	}

	if !v.Valid() {
		writeValidationErr(w, v)
		return
	}

	items, err := s.store.ListMedia(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": items})
}

func (s *Server) handleCreateMedia(w http.ResponseWriter, r *http.Request) {
	var in models.MediaCreate
	if err := readJSON(w, r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	v := validator.New()
	if models.ValidateCreate(v, in); !v.Valid() {
		writeValidationErr(w, v)
		return
	}

	// To-watch entries record the day they were added.
	if !in.Watched && in.DateWatched == "" {
		in.DateWatched = time.Now().Format(models.DateLayout)
	}

	m, err := s.store.InsertMedia(r.Context(), in)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	if m.ImdbID != "" && m.Ratings == "" {
		s.enqueueRatings(r, cache.RatingsJob{MediaIDs: []string{m.ID}, Reason: "created"})
	}

	w.Header().Set("Location", "/v1/movies/"+m.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"media": m})
}

func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m, err := s.store.GetMedia(r.Context(), id)
	if err != nil {
		writeStoreErr(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": m})
}

func (s *Server) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in models.MediaUpdate
	if err := readJSON(w, r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	v := validator.New()
	if models.ValidateUpdate(v, in); !v.Valid() {
		writeValidationErr(w, v)
		return
	}

	m, err := s.store.UpdateMedia(r.Context(), id, in)
	if err != nil {
		writeStoreErr(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": m})
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteMedia(r.Context(), id); err != nil {
		writeStoreErr(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Movie with id %v successfully deleted", id),
	})
}

func (s *Server) handleMarkWatched(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var in models.WatchedInput
	if err := readJSON(w, r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	v := validator.New()
	if models.ValidateWatched(v, in); !v.Valid() {
		writeValidationErr(w, v)
		return
	}

	m, err := s.store.MarkWatched(r.Context(), id, in)
	if err != nil {
		writeStoreErr(w, err, id)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": m})
}

var errNoJobs = errors.New("background jobs are not configured (REDIS_URL not set)")

func (s *Server) handleRefreshRatings(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeErr(w, http.StatusServiceUnavailable, errNoJobs)
		return
	}

	id := r.PathValue("id")
	m, err := s.store.GetMedia(r.Context(), id)
	if err != nil {
		writeStoreErr(w, err, id)
		return
	}
	if m.ImdbID == "" {
		v := validator.New()
		v.AddError("imdbID", "entry has no IMDb id")
		writeValidationErr(w, v)
		return
	}

	if err := s.queue.EnqueueRatings(r.Context(), cache.RatingsJob{MediaIDs: []string{id}, Reason: "requested"}); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id, "queued": true})
}

// handleRefreshAllRatings queues a refresh of every entry's ratings unless a
// full refresh is already running.
func (s *Server) handleRefreshAllRatings(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeErr(w, http.StatusServiceUnavailable, errNoJobs)
		return
	}
	if s.queue.RefreshRunning(r.Context()) {
		writeErr(w, http.StatusConflict, errors.New("a full ratings refresh is already running"))
		return
	}
	if err := s.queue.EnqueueRatings(r.Context(), cache.RatingsJob{All: true, Reason: "requested"}); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"all": true, "queued": true})
}

// enqueueRatings queues a ratings job when a queue is configured. Failures
// are logged; the request that triggered it has already succeeded.
func (s *Server) enqueueRatings(r *http.Request, job cache.RatingsJob) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueRatings(r.Context(), job); err != nil {
		log.Printf("ratings: enqueue %v: %v", job.MediaIDs, err)
	}
}

// writeStoreErr maps store sentinel errors onto HTTP statuses.
func writeStoreErr(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, fmt.Errorf("media %s not found", id))
	case errors.Is(err, store.ErrEditConflict):
		writeErr(w, http.StatusConflict, errors.New("unable to update the record due to an edit conflict, please try again"))
	case errors.Is(err, store.ErrAlreadyWatched):
		writeErr(w, http.StatusConflict, fmt.Errorf("media %s is already in the watched list", id))
	default:
		writeErr(w, http.StatusInternalServerError, err)
	}
}
