package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/SrinivasaPrasadGade/med-x/internal/domain/audit"
)

func testUser() *User {
	org := uuid.New()
	return &User{ID: uuid.New(), Email: "doc@clinic.org", Role: RoleDoctor, OrganizationID: &org}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	tokens := NewTokenIssuer("k", time.Hour)
	u := testUser()

	signed, exp, err := tokens.Issue(u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Error("expected expiry in the future")
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != u.ID.String() || claims.Role != RoleDoctor {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.OrganizationID != u.OrganizationID.String() {
		t.Errorf("expected org claim %s, got %s", u.OrganizationID, claims.OrganizationID)
	}
}

func TestTokenIssuer_WrongKey(t *testing.T) {
	signed, _, _ := NewTokenIssuer("k1", time.Hour).Issue(testUser())
	if _, err := NewTokenIssuer("k2", time.Hour).Parse(signed); err == nil {
		t.Fatal("expected error for token signed with another key")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	tokens := NewTokenIssuer("k", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-time.Hour) }
	signed, _, err := tokens.Issue(testUser())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tokens.now = time.Now
	if _, err := tokens.Parse(signed); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	tokens := NewTokenIssuer("k", 0)
	if tokens.ttl != 24*time.Hour {
		t.Errorf("expected 24h default ttl, got %s", tokens.ttl)
	}
}

func runActor(t *testing.T, tokens *TokenIssuer, authz string) string {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var actor string
	h := ActorMiddleware(tokens)(func(c echo.Context) error {
		actor = audit.ActorFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("middleware must not reject, got %d", rec.Code)
	}
	return actor
}

func TestActorMiddleware(t *testing.T) {
	tokens := NewTokenIssuer("k", time.Hour)
	signed, _, _ := tokens.Issue(testUser())

	if got := runActor(t, tokens, "Bearer "+signed); got != "doc@clinic.org" {
		t.Errorf("expected token email as actor, got %q", got)
	}
	if got := runActor(t, tokens, ""); got != audit.DefaultActor {
		t.Errorf("expected default actor without token, got %q", got)
	}
	if got := runActor(t, tokens, "Bearer garbage"); got != audit.DefaultActor {
		t.Errorf("expected default actor for bad token, got %q", got)
	}
	if got := runActor(t, tokens, "Basic abc"); got != audit.DefaultActor {
		t.Errorf("expected default actor for non-bearer scheme, got %q", got)
	}
}
