package transport

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"farmstand/internal/middleware"
	"farmstand/internal/repository"
	"farmstand/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const testJWTSecret = "handler-test-secret"

type testApp struct {
	router   chi.Router
	catalog  service.CatalogService
	backend  *repository.MemoryCartBackend
	sessions *service.CartSessions
}

func newTestApp() *testApp {
	logger := zap.NewNop()

	catalog := service.NewCatalogService(
		repository.NewProductRepository(repository.SeedProducts()),
		repository.NewCategoryRepository(repository.SeedCategories()),
		logger,
	)
	backend := repository.NewMemoryCartBackend()
	sessions := service.NewCartSessions(backend, catalog, logger, service.SessionLimits{})
	catalog.AddDeletionListener(sessions)

	r := chi.NewRouter()
	NewProductHandler(catalog, logger).RegisterRoutes(r)
	NewCartHandler(sessions, catalog, nil, logger, false).RegisterRoutes(r, nil)
	NewAdminHandler(catalog, logger).RegisterRoutes(r,
		middleware.AuthMiddleware(testJWTSecret, logger),
		middleware.RequireAdmin(logger),
	)

	return &testApp{router: r, catalog: catalog, backend: backend, sessions: sessions}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func adminHeaders(t *testing.T, role string) map[string]string {
	t.Helper()
	token, err := middleware.IssueToken(testJWTSecret, "admin-1", role, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	decodeBody(t, w, &resp)
	return resp.Error.Message
}

// productIDsOf extracts ids from a product list response
func productIDsOf(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	var products []struct {
		ID string `json:"id"`
	}
	decodeBody(t, w, &products)

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
