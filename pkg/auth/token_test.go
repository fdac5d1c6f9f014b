package auth

import (
	"testing"
	"time"

	"github.com/jarafer/armatutienda-backend/pkg/config"
)

func testConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "armatutienda", ExpirationMinutes: 60}
}

func TestMintAndParseSellerToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	token, err := MintSellerToken(cfg, time.Now().UTC(), "tienda@example.com")
	if err != nil {
		t.Fatalf("MintSellerToken: %v", err)
	}

	claims, err := ParseSellerToken(cfg, token)
	if err != nil {
		t.Fatalf("ParseSellerToken: %v", err)
	}
	if claims.SellerEmail != "tienda@example.com" {
		t.Fatalf("seller email = %q", claims.SellerEmail)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestParseSellerTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := MintSellerToken(testConfig(), time.Now().UTC(), "tienda@example.com")
	if err != nil {
		t.Fatalf("MintSellerToken: %v", err)
	}

	other := testConfig()
	other.Secret = "otro-secreto"
	if _, err := ParseSellerToken(other, token); err == nil {
		t.Fatal("token signed with another secret parsed")
	}
}

func TestParseSellerTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	token, err := MintSellerToken(cfg, time.Now().UTC().Add(-2*time.Hour), "tienda@example.com")
	if err != nil {
		t.Fatalf("MintSellerToken: %v", err)
	}
	if _, err := ParseSellerToken(cfg, token); err == nil {
		t.Fatal("expired token parsed")
	}
}

func TestParseSellerTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := ParseSellerToken(testConfig(), "no-es-un-token"); err == nil {
		t.Fatal("garbage token parsed")
	}
}
