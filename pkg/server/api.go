package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/filter"
	"github.com/vango-dev/storefront/pkg/nav"
)

// resolveResponse is the body of GET /api/nav/resolve.
type resolveResponse struct {
	nav.Parsed
	Canonical string `json:"canonical"`
}

// handleResolve decodes ?fragment= into navigation state. An unresolvable
// product answers 404 with a redirect to the home page.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	fragment := r.URL.Query().Get("fragment")
	parsed, err := nav.Parse(fragment, nil, s.catalog)
	if errors.Is(err, nav.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{
			Error:    coded(err),
			Redirect: "#/" + nav.PageHome,
		})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resolveResponse{Parsed: parsed, Canonical: "#" + parsed.Fragment()})
}

// handleEncode builds a fragment from query parameters: view selects the
// page, filter keys become filter state and every other key a page field.
func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	q := filter.ParseQuery(r.URL.RawQuery)
	page := q.Get("view")
	if page == "" {
		page = nav.PageShop
	}

	f, n := filter.Decode(q)
	fields := make(map[string]string)
	for _, p := range q {
		if p.Key == "view" || filter.IsFilterKey(p.Key) {
			continue
		}
		if _, seen := fields[p.Key]; !seen {
			fields[p.Key] = q.Get(p.Key)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"fragment": "#" + nav.Build(page, fields, f.Normalize(), n),
		"query":    filter.Encode(f.Normalize(), n),
	})
}

// handleProducts lists catalog products matching the filter query.
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	q := filter.ParseQuery(r.URL.RawQuery)
	f, page := filter.Decode(q)

	pageSize := s.config.PageSize
	if raw := q.Get("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, invalidRequest("pageSize", "pageSize must be a positive integer"))
			return
		}
		pageSize = min(n, s.config.MaxPageSize)
	}

	writeJSON(w, http.StatusOK, catalog.Query(s.catalog.All(), f.Normalize(), q.Get(nav.KeySearch), page, pageSize))
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		s.writeError(w, r, invalidRequest("id", "product IDs are positive integers"))
		return
	}
	p, ok := s.catalog.Lookup(id)
	if !ok {
		s.writeError(w, r, sferrors.New(sferrors.CodeProductNotFound).WithField(strconv.Itoa(id)))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.Facets(s.catalog.All()))
}
