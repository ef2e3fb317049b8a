package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware_CookieRoundTrip(t *testing.T) {
	a := NewAuthMiddleware("test-secret")

	rec := httptest.NewRecorder()
	a.SetAuthCookie(rec, 7)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}

	code, ok := a.parseCookie(cookies[0].Value)
	if !ok {
		t.Fatalf("parseCookie failed for own cookie")
	}
	if code != 7 {
		t.Fatalf("code = %d, want 7", code)
	}
}

func TestAuthMiddleware_RejectsForgedCookie(t *testing.T) {
	a := NewAuthMiddleware("test-secret")
	other := NewAuthMiddleware("other-secret")

	rec := httptest.NewRecorder()
	other.SetAuthCookie(rec, 7)

	if _, ok := a.parseCookie(rec.Result().Cookies()[0].Value); ok {
		t.Fatalf("cookie signed with another key must be rejected")
	}

	if _, ok := a.parseCookie("7"); ok {
		t.Fatalf("cookie without signature must be rejected")
	}
}

func TestAuthMiddleware_PutsCodeIntoContext(t *testing.T) {
	a := NewAuthMiddleware("test-secret")

	var gotCode int64
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCode, gotOK = GetEmployeeCodeFromContext(r.Context())
	})

	setRec := httptest.NewRecorder()
	a.SetAuthCookie(setRec, 42)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(setRec.Result().Cookies()[0])

	rec := httptest.NewRecorder()
	a.Middleware(next).ServeHTTP(rec, req)

	if !gotOK || gotCode != 42 {
		t.Fatalf("context code = %d (%v), want 42", gotCode, gotOK)
	}
}

func TestAuthMiddleware_UnauthorizedWithoutCookie(t *testing.T) {
	a := NewAuthMiddleware("test-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	called := false
	a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rec, req)

	if rec.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Result().StatusCode, http.StatusUnauthorized)
	}
	if called {
		t.Fatalf("next handler must not be called without cookie")
	}
}
