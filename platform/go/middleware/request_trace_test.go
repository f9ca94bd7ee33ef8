package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	platformauth "github.com/trimly-app/trimly-saas/platform/go/auth"
	"github.com/trimly-app/trimly-saas/platform/go/requesttrace"
)

func TestRequestTraceWithAuthenticatedUser(t *testing.T) {
	var captured requesttrace.AuditInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requesttrace.FromContextOrAnonymous(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/barbers", nil)
	tenantID := "6e1f0f3c-0f2a-4c5a-9a58-2b6f4f2d8c01"
	creds := &platformauth.UserCredentials{ID: "user-1", Email: "sam@shop.test", TenantID: &tenantID}
	req = req.WithContext(platformauth.WithUser(req.Context(), creds))

	rec := httptest.NewRecorder()
	RequestTrace(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, requesttrace.ActorKindUser, captured.ActorKind)
	require.NotNil(t, captured.UserID)
	require.Equal(t, "user-1", *captured.UserID)
}

func TestRequestTraceAnonymous(t *testing.T) {
	var captured requesttrace.AuditInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requesttrace.FromContextOrAnonymous(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	RequestTrace(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, requesttrace.ActorKindAnonymous, captured.ActorKind)
	require.Nil(t, captured.UserID)
}

func TestRequestTraceRejectsCredentialsWithoutID(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/barbers", nil)
	req = req.WithContext(platformauth.WithUser(req.Context(), &platformauth.UserCredentials{}))

	rec := httptest.NewRecorder()
	RequestTrace(next).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
