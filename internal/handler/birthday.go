package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/middleware"
	"github.com/pkordes/birthdays/internal/service"
)

// CreateBirthday handles POST /birthdays.
func (s *Server) CreateBirthday(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	var body CreateBirthdayRequest
	if !decodeBody(w, r, &body) {
		return
	}

	created, err := s.birthdays.Create(r.Context(), service.CreateInput{
		UserID:       owner,
		Name:         body.Name,
		BirthDate:    body.BirthDate,
		Notes:        body.Notes,
		ReminderDays: body.ReminderDays,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/birthdays/"+created.ID().String())
	writeJSON(w, http.StatusCreated, created.Record())
}

// ListBirthdays handles GET /birthdays.
// Results are ordered soonest upcoming first. Supports ?page= and ?limit=
// query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListBirthdays(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		badRequest(w, "invalid page parameter")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		badRequest(w, "invalid limit parameter")
		return
	}
	params := domain.NewPaginationParams(page, limit)

	birthdays, err := s.birthdays.List(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	start, end := params.Window(len(birthdays))
	data := make([]Birthday, 0, end-start)
	for _, b := range birthdays[start:end] {
		data = append(data, b.Record())
	}
	writeJSON(w, http.StatusOK, BirthdayList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(birthdays),
		},
	})
}

// GetBirthday handles GET /birthdays/{id}.
func (s *Server) GetBirthday(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	b, err := s.birthdays.Get(r.Context(), id, owner)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if b == nil {
		notFound(w, "birthday not found")
		return
	}
	writeJSON(w, http.StatusOK, b.Record())
}

// UpdateBirthday handles PUT /birthdays/{id}.
func (s *Server) UpdateBirthday(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body UpdateBirthdayRequest
	if !decodeBody(w, r, &body) {
		return
	}

	in := service.UpdateInput{
		ID:           id,
		UserID:       owner,
		Name:         body.Name,
		BirthDate:    body.BirthDate,
		ReminderDays: body.ReminderDays,
	}
	if body.Notes.Set {
		// null clears just like an empty string does.
		notes := ""
		if body.Notes.Value != nil {
			notes = *body.Notes.Value
		}
		in.Notes = &notes
	}

	updated, err := s.birthdays.Update(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Record())
}

// DeleteBirthday handles DELETE /birthdays/{id}.
func (s *Server) DeleteBirthday(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.birthdays.Delete(r.Context(), id, owner); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- request helpers --------------------------------------------------------

// requireOwner returns the authenticated owner, writing a 401 when the
// authenticator did not run.
func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return "", false
	}
	return owner, true
}

// pathID binds the {id} path parameter.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || id == "" {
		badRequest(w, "invalid id parameter")
		return "", false
	}
	return id, true
}
