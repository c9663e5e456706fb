package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTokens(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		token, err := IssueToken("s3cret", "mobile-app", time.Hour)
		if err != nil {
			t.Fatalf("IssueToken failed: %v", err)
		}
		claims, err := ParseToken("s3cret", token)
		if err != nil {
			t.Fatalf("ParseToken failed: %v", err)
		}
		if claims.Subject != "mobile-app" {
			t.Errorf("Expected subject 'mobile-app', got %q", claims.Subject)
		}
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, _ := IssueToken("s3cret", "x", time.Hour)
		if _, err := ParseToken("other", token); err == nil {
			t.Fatal("Expected an error for a wrong secret, got nil")
		}
	})

	t.Run("Expired", func(t *testing.T) {
		token, _ := IssueToken("s3cret", "x", -time.Minute)
		if _, err := ParseToken("s3cret", token); err == nil {
			t.Fatal("Expected an error for an expired token, got nil")
		}
	})

	t.Run("EmptySecret", func(t *testing.T) {
		if _, err := IssueToken("", "x", time.Hour); err == nil {
			t.Fatal("Expected an error for an empty secret, got nil")
		}
	})
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	handler := Middleware("s3cret")(func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("client").(string))
	})
	valid, _ := IssueToken("s3cret", "tester", time.Hour)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"Valid", "Bearer " + valid, http.StatusOK},
		{"Missing", "", http.StatusUnauthorized},
		{"WrongScheme", "Basic abc", http.StatusUnauthorized},
		{"Garbage", "Bearer not-a-token", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/meal-plan", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			err := handler(e.NewContext(req, rec))

			status := rec.Code
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}
			if status != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, status)
			}
			if tc.status == http.StatusOK && rec.Body.String() != "tester" {
				t.Errorf("Expected client subject in context, got %q", rec.Body.String())
			}
		})
	}
}
