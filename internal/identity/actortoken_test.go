package identity

import (
	"strings"
	"testing"
	"time"
)

func TestActorTokens_RoundTrip(t *testing.T) {
	at, err := NewActorTokens([]byte("test-secret"), "http://localhost:8080", time.Hour)
	if err != nil {
		t.Fatalf("NewActorTokens error: %v", err)
	}

	tok, err := at.Issue("warehouse-operator-3", "Distributor")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := at.Verify(tok)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.Actor != "warehouse-operator-3" {
		t.Errorf("actor: got %q", claims.Actor)
	}
	if claims.Role != "Distributor" {
		t.Errorf("role: got %q", claims.Role)
	}
	if claims.Subject != claims.Actor {
		t.Errorf("subject %q should mirror actor %q", claims.Subject, claims.Actor)
	}
}

func TestActorTokens_RejectsWrongSecret(t *testing.T) {
	a, _ := NewActorTokens([]byte("secret-a"), "iss", time.Hour)
	b, _ := NewActorTokens([]byte("secret-b"), "iss", time.Hour)

	tok, err := a.Issue("actor", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestActorTokens_RejectsExpired(t *testing.T) {
	at, _ := NewActorTokens([]byte("secret"), "iss", -time.Minute)
	tok, err := at.Issue("actor", "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := at.Verify(tok); err == nil {
		t.Error("expired token must not verify")
	}
}

func TestActorTokens_RejectsWrongIssuer(t *testing.T) {
	a, _ := NewActorTokens([]byte("secret"), "issuer-a", time.Hour)
	b, _ := NewActorTokens([]byte("secret"), "issuer-b", time.Hour)

	tok, _ := a.Issue("actor", "")
	if _, err := b.Verify(tok); err == nil {
		t.Error("token from another issuer must not verify")
	}
}

func TestActorTokens_EmptySecret(t *testing.T) {
	if _, err := NewActorTokens(nil, "iss", 0); err == nil || !strings.Contains(err.Error(), "secret") {
		t.Errorf("got %v, want secret error", err)
	}
}
