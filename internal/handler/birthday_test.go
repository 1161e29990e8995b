package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/birthdays/internal/domain"
	"github.com/pkordes/birthdays/internal/handler"
	"github.com/pkordes/birthdays/internal/middleware"
	"github.com/pkordes/birthdays/internal/service"
)

// mockBirthdayServicer is a test double for handler.BirthdayServicer.
// Set only the method fields your test needs.
type mockBirthdayServicer struct {
	create func(ctx context.Context, in service.CreateInput) (*domain.Birthday, error)
	get    func(ctx context.Context, id, owner string) (*domain.Birthday, error)
	list   func(ctx context.Context, owner string) ([]*domain.Birthday, error)
	update func(ctx context.Context, in service.UpdateInput) (*domain.Birthday, error)
	delete func(ctx context.Context, id, owner string) error
}

func (m *mockBirthdayServicer) Create(ctx context.Context, in service.CreateInput) (*domain.Birthday, error) {
	return m.create(ctx, in)
}
func (m *mockBirthdayServicer) Get(ctx context.Context, id, owner string) (*domain.Birthday, error) {
	return m.get(ctx, id, owner)
}
func (m *mockBirthdayServicer) List(ctx context.Context, owner string) ([]*domain.Birthday, error) {
	return m.list(ctx, owner)
}
func (m *mockBirthdayServicer) Update(ctx context.Context, in service.UpdateInput) (*domain.Birthday, error) {
	return m.update(ctx, in)
}
func (m *mockBirthdayServicer) Delete(ctx context.Context, id, owner string) error {
	return m.delete(ctx, id, owner)
}

// compile-time check: mockBirthdayServicer must satisfy handler.BirthdayServicer.
var _ handler.BirthdayServicer = (*mockBirthdayServicer)(nil)

// ---- helpers ---------------------------------------------------------------

const testOwner = "user-1"

// asOwner is a stand-in authenticator that marks every request as testOwner.
func asOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(middleware.WithOwner(r.Context(), testOwner)))
	})
}

// denyAll is an authenticator that rejects every request.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
}

// newHTTPHandler wires a Server with the given mock into the router.
// This mirrors how main.go wires it in production, minus token checks.
func newHTTPHandler(svc handler.BirthdayServicer, opts handler.Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return handler.NewServer(svc, nil, opts).Routes(asOwner)
}

var fixtureTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func birthdayFixture(t *testing.T, id string) *domain.Birthday {
	t.Helper()
	bid, err := domain.NewBirthdayID(id)
	require.NoError(t, err)
	date, err := domain.ParseBirthDate("1990-12-25")
	require.NoError(t, err)
	notes := "bring cake"
	days := 3
	b, err := domain.NewBirthday(domain.BirthdayParams{
		ID:           bid,
		UserID:       testOwner,
		Name:         "Ada Lovelace",
		BirthDate:    date,
		Notes:        &notes,
		ReminderDays: &days,
		Now:          fixtureTime,
	})
	require.NoError(t, err)
	return b
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func serve(h http.Handler, method, target string, body *bytes.Buffer) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}

// ---- POST /birthdays -------------------------------------------------------

func TestCreateBirthday_201(t *testing.T) {
	fixture := birthdayFixture(t, "b-1")
	var got service.CreateInput
	svc := &mockBirthdayServicer{
		create: func(_ context.Context, in service.CreateInput) (*domain.Birthday, error) {
			got = in
			return fixture, nil
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPost, "/birthdays", jsonBody(t, map[string]any{
		"name":         "Ada Lovelace",
		"birthDate":    "1990-12-25",
		"notes":        "bring cake",
		"reminderDays": 3,
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/birthdays/b-1", rec.Header().Get("Location"))
	assert.Equal(t, testOwner, got.UserID, "owner comes from the auth context, never the body")
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "1990-12-25", got.BirthDate)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "bring cake", *got.Notes)
	require.NotNil(t, got.ReminderDays)
	assert.Equal(t, 3, *got.ReminderDays)

	var resp handler.Birthday
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.Record(), resp)
}

func TestCreateBirthday_WireFormat(t *testing.T) {
	fixture := birthdayFixture(t, "b-1")
	fixture.UpdateInfo(fixture.Name(), fixture.BirthDate(), nil, fixtureTime)
	svc := &mockBirthdayServicer{
		create: func(context.Context, service.CreateInput) (*domain.Birthday, error) { return fixture, nil },
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPost, "/birthdays",
		jsonBody(t, map[string]any{"name": "Ada Lovelace", "birthDate": "1990-12-25"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{
		"id": "b-1",
		"userId": "user-1",
		"name": "Ada Lovelace",
		"birthDate": "1990-12-25T00:00:00.000Z",
		"reminderDays": 3,
		"createdAt": "2024-03-01T09:00:00.000Z",
		"updatedAt": "2024-03-01T09:00:00.000Z"
	}`, rec.Body.String())
}

func TestCreateBirthday_422_ValidationError(t *testing.T) {
	svc := &mockBirthdayServicer{
		create: func(context.Context, service.CreateInput) (*domain.Birthday, error) {
			return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPost, "/birthdays",
		jsonBody(t, map[string]any{"name": "", "birthDate": "1990-12-25"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, "validation_error", detail.Code)
	assert.Equal(t, "name is required", detail.Message)
}

func TestCreateBirthday_400_MalformedBody(t *testing.T) {
	tests := map[string]string{
		"not json":         `{"name": `,
		"wrong type":       `{"name": "Ada", "birthDate": "1990-12-25", "reminderDays": "three"}`,
		"empty":            ``,
		"array not object": `[]`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			svc := &mockBirthdayServicer{
				create: func(context.Context, service.CreateInput) (*domain.Birthday, error) {
					t.Fatal("service must not be called for a malformed body")
					return nil, nil
				},
			}

			rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPost, "/birthdays", bytes.NewBufferString(body))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec).Code)
		})
	}
}

func TestCreateBirthday_409_Conflict(t *testing.T) {
	svc := &mockBirthdayServicer{
		create: func(context.Context, service.CreateInput) (*domain.Birthday, error) {
			return nil, fmt.Errorf("service: %w", domain.ErrConflict)
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPost, "/birthdays",
		jsonBody(t, map[string]any{"name": "Ada", "birthDate": "1990-12-25"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeError(t, rec).Code)
}

func TestCreateBirthday_500_LogsAndHidesDetails(t *testing.T) {
	var logs bytes.Buffer
	svc := &mockBirthdayServicer{
		create: func(context.Context, service.CreateInput) (*domain.Birthday, error) {
			return nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
		},
	}
	h := newHTTPHandler(svc, handler.Options{Logger: slog.New(slog.NewJSONHandler(&logs, nil))})

	rec := serve(h, http.MethodPost, "/birthdays", jsonBody(t, map[string]any{"name": "Ada", "birthDate": "1990-12-25"}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
	assert.Contains(t, logs.String(), "connection refused")
}

// ---- GET /birthdays --------------------------------------------------------

func TestListBirthdays_200_Paginated(t *testing.T) {
	all := []*domain.Birthday{
		birthdayFixture(t, "b-1"),
		birthdayFixture(t, "b-2"),
		birthdayFixture(t, "b-3"),
	}
	svc := &mockBirthdayServicer{
		list: func(_ context.Context, owner string) ([]*domain.Birthday, error) {
			assert.Equal(t, testOwner, owner)
			return all, nil
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays?page=2&limit=2", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.BirthdayList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "b-3", resp.Data[0].ID)
	assert.Equal(t, handler.Pagination{Page: 2, Limit: 2, Total: 3}, resp.Pagination)
}

func TestListBirthdays_200_DefaultsAndOrderPreserved(t *testing.T) {
	all := []*domain.Birthday{birthdayFixture(t, "soonest"), birthdayFixture(t, "later")}
	svc := &mockBirthdayServicer{
		list: func(context.Context, string) ([]*domain.Birthday, error) { return all, nil },
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.BirthdayList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "soonest", resp.Data[0].ID)
	assert.Equal(t, "later", resp.Data[1].ID)
	assert.Equal(t, handler.Pagination{Page: 1, Limit: 20, Total: 2}, resp.Pagination)
}

func TestListBirthdays_200_EmptyIsArray(t *testing.T) {
	svc := &mockBirthdayServicer{
		list: func(context.Context, string) ([]*domain.Birthday, error) { return []*domain.Birthday{}, nil },
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays?page=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListBirthdays_200_HugePageIsEmpty(t *testing.T) {
	all := []*domain.Birthday{birthdayFixture(t, "b-1"), birthdayFixture(t, "b-2"), birthdayFixture(t, "b-3")}
	svc := &mockBirthdayServicer{
		list: func(context.Context, string) ([]*domain.Birthday, error) { return all, nil },
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays?page=9223372036854775807&limit=100", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.BirthdayList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Data)
	assert.Equal(t, 3, resp.Pagination.Total)
}

func TestListBirthdays_400_BadPageParam(t *testing.T) {
	svc := &mockBirthdayServicer{}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays?page=abc", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- GET /birthdays/{id} ---------------------------------------------------

func TestGetBirthday_200(t *testing.T) {
	fixture := birthdayFixture(t, "b-1")
	svc := &mockBirthdayServicer{
		get: func(_ context.Context, id, owner string) (*domain.Birthday, error) {
			assert.Equal(t, "b-1", id)
			assert.Equal(t, testOwner, owner)
			return fixture, nil
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays/b-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp handler.Birthday
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.Record(), resp)
}

func TestGetBirthday_404_Absent(t *testing.T) {
	svc := &mockBirthdayServicer{
		get: func(context.Context, string, string) (*domain.Birthday, error) { return nil, nil },
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays/missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestGetBirthday_Forbidden(t *testing.T) {
	svc := &mockBirthdayServicer{
		get: func(context.Context, string, string) (*domain.Birthday, error) {
			return nil, fmt.Errorf("service.BirthdayService.Get: %w", domain.ErrForbidden)
		},
	}

	t.Run("reported", func(t *testing.T) {
		rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodGet, "/birthdays/b-1", nil)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", decodeError(t, rec).Code)
	})

	t.Run("concealed", func(t *testing.T) {
		rec := serve(newHTTPHandler(svc, handler.Options{ConcealForbidden: true}), http.MethodGet, "/birthdays/b-1", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Code)
	})
}

// ---- PUT /birthdays/{id} ---------------------------------------------------

func TestUpdateBirthday_200(t *testing.T) {
	fixture := birthdayFixture(t, "b-1")
	var got service.UpdateInput
	svc := &mockBirthdayServicer{
		update: func(_ context.Context, in service.UpdateInput) (*domain.Birthday, error) {
			got = in
			return fixture, nil
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPut, "/birthdays/b-1", jsonBody(t, map[string]any{
		"name":         "Augusta Ada",
		"reminderDays": 0,
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b-1", got.ID)
	assert.Equal(t, testOwner, got.UserID)
	require.NotNil(t, got.Name)
	assert.Equal(t, "Augusta Ada", *got.Name)
	assert.Nil(t, got.BirthDate, "omitted fields stay nil")
	assert.Nil(t, got.Notes, "omitted notes must not clear them")
	require.NotNil(t, got.ReminderDays)
	assert.Equal(t, 0, *got.ReminderDays)
}

func TestUpdateBirthday_NotesNullOrEmptyClears(t *testing.T) {
	for name, body := range map[string]string{
		"null":  `{"notes": null}`,
		"empty": `{"notes": ""}`,
	} {
		t.Run(name, func(t *testing.T) {
			var got service.UpdateInput
			svc := &mockBirthdayServicer{
				update: func(_ context.Context, in service.UpdateInput) (*domain.Birthday, error) {
					got = in
					return birthdayFixture(t, "b-1"), nil
				},
			}

			rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPut, "/birthdays/b-1", bytes.NewBufferString(body))

			require.Equal(t, http.StatusOK, rec.Code)
			require.NotNil(t, got.Notes)
			assert.Empty(t, *got.Notes)
		})
	}
}

func TestUpdateBirthday_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", fmt.Errorf("service.BirthdayService.Update: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"forbidden", fmt.Errorf("service.BirthdayService.Update: %w", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"validation", fmt.Errorf("%w: name cannot be blank", domain.ErrValidation), http.StatusUnprocessableEntity, "validation_error"},
		{"infrastructure", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockBirthdayServicer{
				update: func(context.Context, service.UpdateInput) (*domain.Birthday, error) { return nil, tc.err },
			}

			rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodPut, "/birthdays/b-1",
				jsonBody(t, map[string]any{"name": "x"}))

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}
}

// ---- DELETE /birthdays/{id} ------------------------------------------------

func TestDeleteBirthday_204(t *testing.T) {
	svc := &mockBirthdayServicer{
		delete: func(_ context.Context, id, owner string) error {
			assert.Equal(t, "b-1", id)
			assert.Equal(t, testOwner, owner)
			return nil
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodDelete, "/birthdays/b-1", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestDeleteBirthday_404(t *testing.T) {
	svc := &mockBirthdayServicer{
		delete: func(context.Context, string, string) error {
			return fmt.Errorf("service.BirthdayService.Delete: %w", domain.ErrNotFound)
		},
	}

	rec := serve(newHTTPHandler(svc, handler.Options{}), http.MethodDelete, "/birthdays/b-1", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- authentication --------------------------------------------------------

func TestBirthdayRoutes_RequireAuthentication(t *testing.T) {
	svc := &mockBirthdayServicer{}
	h := handler.NewServer(svc, nil, handler.Options{}).Routes(denyAll)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/birthdays"},
		{http.MethodPost, "/birthdays"},
		{http.MethodGet, "/birthdays/b-1"},
		{http.MethodPut, "/birthdays/b-1"},
		{http.MethodDelete, "/birthdays/b-1"},
		{http.MethodGet, "/birthdays/export"},
	} {
		rec := serve(h, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

// TestBirthdayRoutes_WithJWT runs a request through the real authenticator to
// verify the token subject reaches the service as the owner.
func TestBirthdayRoutes_WithJWT(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	var owner string
	svc := &mockBirthdayServicer{
		list: func(_ context.Context, o string) ([]*domain.Birthday, error) {
			owner = o
			return nil, nil
		},
	}
	auth := middleware.NewAuthenticator(secret, middleware.AuthOptions{})
	h := handler.NewServer(svc, nil, handler.Options{}).Routes(auth)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "jwt-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/birthdays", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jwt-user", owner)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}

// TestBirthdayRoutes_MissingOwnerIs401 guards against wiring an authenticator
// that forgets to record the owner.
func TestBirthdayRoutes_MissingOwnerIs401(t *testing.T) {
	passThrough := func(next http.Handler) http.Handler { return next }
	h := handler.NewServer(&mockBirthdayServicer{}, nil, handler.Options{}).Routes(passThrough)

	rec := serve(h, http.MethodGet, "/birthdays", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
