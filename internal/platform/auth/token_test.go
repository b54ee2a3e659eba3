package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "twin-api", time.Hour)
	userID := uuid.New()

	token, claims, err := issuer.Issue(userID, "ada@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if claims.ID == "" {
		t.Error("expected a JTI to be assigned")
	}
	if claims.Subject != userID.String() {
		t.Errorf("subject = %q, want %q", claims.Subject, userID.String())
	}

	parsed, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.Subject != userID.String() {
		t.Errorf("parsed subject = %q, want %q", parsed.Subject, userID.String())
	}
	if parsed.Email != "ada@example.com" {
		t.Errorf("parsed email = %q, want %q", parsed.Email, "ada@example.com")
	}
	if parsed.ID != claims.ID {
		t.Errorf("parsed JTI = %q, want %q", parsed.ID, claims.ID)
	}
}

func TestTokenIssuer_UniqueJTIs(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "twin-api", time.Hour)
	userID := uuid.New()

	_, c1, err := issuer.Issue(userID, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, c2, err := issuer.Issue(userID, "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if c1.ID == c2.ID {
		t.Error("expected distinct JTIs for separate tokens")
	}
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", "twin-api", time.Hour)
	other := NewTokenIssuer("secret-b", "twin-api", time.Hour)

	token, _, err := issuer.Issue(uuid.New(), "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Parse(token); err == nil {
		t.Error("expected parse to fail with a different secret")
	}
}

func TestTokenIssuer_RejectsWrongIssuer(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "twin-api", time.Hour)
	other := NewTokenIssuer("test-secret", "other-api", time.Hour)

	token, _, err := issuer.Issue(uuid.New(), "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := other.Parse(token); err == nil {
		t.Error("expected parse to fail for mismatched issuer")
	}
}

func TestTokenIssuer_RejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "twin-api", -time.Minute)

	token, _, err := issuer.Issue(uuid.New(), "")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := issuer.Parse(token); err == nil {
		t.Error("expected parse to fail for expired token")
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", "twin-api", time.Hour)

	for _, input := range []string{"", "not-a-token", strings.Repeat("x", 100)} {
		if _, err := issuer.Parse(input); err == nil {
			t.Errorf("expected parse to fail for %q", input)
		}
	}
}
