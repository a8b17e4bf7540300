package security

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("0123456789abcdef0123456789abcdef"))
	token, exp, err := Generate(opts, "user_1001")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Errorf("expiry %v not in the future", exp)
	}
	sub, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "user_1001" {
		t.Errorf("subject = %q, want user_1001", sub)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	opts := DefaultOptions([]byte("0123456789abcdef0123456789abcdef"))
	token, _, err := Generate(opts, "user_1001")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	bad := DefaultOptions([]byte("another-secret-another-secret-xx"))
	if _, err := Verify(bad, token); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestVerifyExpired(t *testing.T) {
	opts := Options{Secret: []byte("0123456789abcdef0123456789abcdef"), TTL: -time.Minute}
	token, _, err := Generate(opts, "user_1001")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := Verify(DefaultOptions(opts.Secret), token); err == nil {
		t.Error("expected verification failure for expired token")
	}
}

func TestUnsupportedAlg(t *testing.T) {
	opts := Options{Secret: []byte("k"), Alg: "RS256"}
	if _, _, err := Generate(opts, "u"); err == nil {
		t.Error("expected error for unsupported alg")
	}
}
