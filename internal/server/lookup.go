package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/voyagen/watchvault/internal/models"
	"github.com/voyagen/watchvault/internal/omdb"
	"github.com/voyagen/watchvault/internal/store"
	"github.com/voyagen/watchvault/internal/validator"
	"github.com/voyagen/watchvault/internal/viewstate"
)

// handleListView serves one list with the view state from the query string
// applied: search and tag filters plus the sort, delegated to the store when
// it can order by the key.
func (s *Server) handleListView(w http.ResponseWriter, r *http.Request) {
	kind := models.ListKind(r.PathValue("kind"))
	if !kind.Valid() {
		writeErr(w, http.StatusNotFound, fmt.Errorf("unknown list %q", kind))
		return
	}

	v := validator.New()
	p := viewstate.ParseParams(r.URL.Query(), v)
	if !v.Valid() {
		writeValidationErr(w, v)
		return
	}

	watched := kind.Watched()
	filter := store.MediaFilter{Watched: &watched}
	if p.MediaType != "" {
		mt := p.MediaType
		filter.MediaType = &mt
	}
	if sort, ok := p.ServerSort(); ok {
		filter.Sort = sort.String()
	}

	items, err := s.store.ListMedia(r.Context(), filter)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	view := viewstate.Derive(items, p)
	writeJSON(w, http.StatusOK, map[string]any{
		"media":              view.Items,
		"totalFilteredItems": view.TotalFiltered,
		"totalItems":         view.Total,
		"summary":            view.Summary(p.MediaType),
		"sort":               p.Sort.String(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.URL.Query().Get("s"))
	if text == "" {
		v := validator.New()
		v.AddError("s", "must be provided")
		writeValidationErr(w, v)
		return
	}

	results, err := s.metadata.Search(r.Context(), text)
	if err != nil {
		writeUpstreamErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, title := strings.TrimSpace(q.Get("i")), strings.TrimSpace(q.Get("t"))

	var (
		md  *models.ExternalMetadata
		err error
	)
	switch {
	case id != "":
		md, err = s.metadata.ByID(r.Context(), id)
	case title != "":
		md, err = s.metadata.ByTitle(r.Context(), title)
	default:
		v := validator.New()
		v.AddError("i", "either i or t must be provided")
		writeValidationErr(w, v)
		return
	}
	if err != nil {
		writeUpstreamErr(w, err)
		return
	}
	if md == nil {
		writeErr(w, http.StatusNotFound, errors.New("title not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metadata": md})
}

func writeUpstreamErr(w http.ResponseWriter, err error) {
	if errors.Is(err, omdb.ErrNotConfigured) {
		writeErr(w, http.StatusServiceUnavailable, errors.New("metadata search is not configured (OMDB_API_KEY not set)"))
		return
	}
	writeErr(w, http.StatusBadGateway, err)
}
