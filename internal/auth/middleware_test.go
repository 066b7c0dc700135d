package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-backoffice/internal/auth"
	"ms-backoffice/internal/models"
)

func issueFor(t *testing.T, issuer *auth.TokenIssuer, user *models.User) string {
	token, err := issuer.IssueToken(user)
	if err != nil {
		t.Fatalf("Failed to issue token: %v", err)
	}
	return token
}

func protectedHandler(issuer *auth.TokenIssuer, guard func(http.Handler) http.Handler) http.Handler {
	var inner http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if guard != nil {
		inner = guard(inner)
	}
	return auth.Middleware(issuer)(inner)
}

func TestMiddlewareStoresClaims(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	token := issueFor(t, issuer, &models.User{ID: 42, Login: "user", Role: models.RoleUser})

	var gotID int64
	handler := auth.Middleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = auth.UserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if gotID != 42 {
		t.Errorf("Expected user ID 42 from context, got %d", gotID)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := protectedHandler(issuer, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := protectedHandler(issuer, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestRequireHR(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := protectedHandler(issuer, auth.RequireHR)

	hrToken := issueFor(t, issuer, &models.User{ID: 1, Login: "hr", Role: models.RoleHR})
	userToken := issueFor(t, issuer, &models.User{ID: 2, Login: "user", Role: models.RoleUser})

	req := httptest.NewRequest(http.MethodPost, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer "+hrToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected HR to pass, got status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/employees", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected regular user to be rejected, got status %d", rec.Code)
	}
}

func TestRequireML(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	handler := protectedHandler(issuer, auth.RequireML)

	mlToken := issueFor(t, issuer, &models.User{ID: models.MLUserID, Login: "ml-service", Role: models.RoleUser})
	hrToken := issueFor(t, issuer, &models.User{ID: 1, Login: "hr", Role: models.RoleHR})

	req := httptest.NewRequest(http.MethodPost, "/api/ml/employee_visit", nil)
	req.Header.Set("Authorization", "Bearer "+mlToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected ML principal to pass, got status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/ml/employee_visit", nil)
	req.Header.Set("Authorization", "Bearer "+hrToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected non-ML caller to be rejected, got status %d", rec.Code)
	}
}
