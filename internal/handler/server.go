// Package handler implements the HTTP handlers for the Birthdays API.
// All handlers are methods on Server; routes are registered by Server.Routes.
// Methods are split into domain-specific files (health.go, birthday.go, etc.)
// but all share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/service"
)

// BirthdayServicer defines the business operations the birthday handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching storage or the service layer.
type BirthdayServicer interface {
	Create(ctx context.Context, in service.CreateInput) (*domain.Birthday, error)
	Get(ctx context.Context, id, owner string) (*domain.Birthday, error)
	List(ctx context.Context, owner string) ([]*domain.Birthday, error)
	Update(ctx context.Context, in service.UpdateInput) (*domain.Birthday, error)
	Delete(ctx context.Context, id, owner string) error
}

// ExportServicer defines the export operation the export handler depends on.
type ExportServicer interface {
	Export(ctx context.Context, owner string) ([]domain.ExportRow, error)
}

// Options holds the optional dependencies and switches of a Server.
type Options struct {
	// Logger receives unexpected handler errors. Defaults to slog.Default().
	Logger *slog.Logger
	// Clock stamps calendar exports. Defaults to domain.SystemClock.
	Clock domain.Clock
	// ConcealForbidden reports another owner's birthday as 404 instead of 403.
	ConcealForbidden bool
	// OpenAPI is served verbatim at GET /openapi.yaml when non-empty.
	OpenAPI []byte
}

// Server implements every API endpoint.
type Server struct {
	birthdays        BirthdayServicer
	export           ExportServicer
	log              *slog.Logger
	clock            domain.Clock
	concealForbidden bool
	openAPI          []byte
}

// NewServer constructs the Server with all its dependencies.
func NewServer(birthdays BirthdayServicer, export ExportServicer, opts Options) *Server {
	s := &Server{
		birthdays:        birthdays,
		export:           export,
		log:              opts.Logger,
		clock:            opts.Clock,
		concealForbidden: opts.ConcealForbidden,
		openAPI:          opts.OpenAPI,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.clock == nil {
		s.clock = domain.SystemClock{}
	}
	return s
}

// Routes returns a router serving the API. auth guards every /birthdays route
// and must store the caller in the context via middleware.WithOwner; the
// health and spec routes stay public.
func (s *Server) Routes(auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/birthdays", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", s.CreateBirthday)
		r.Get("/", s.ListBirthdays)
		// Registered before /{id} so "export" is never treated as an id.
		r.Get("/export", s.GetExport)
		r.Get("/{id}", s.GetBirthday)
		r.Put("/{id}", s.UpdateBirthday)
		r.Delete("/{id}", s.DeleteBirthday)
	})
	return r
}
