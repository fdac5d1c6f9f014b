package security

import (
	"strings"
	"testing"
)

func TestHashAndVerifyKey(t *testing.T) {
	t.Parallel()

	hash, err := HashKey("clave-super-secreta")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %q", hash)
	}

	ok, err := VerifyKey("clave-super-secreta", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyKey(correct) = %v, %v", ok, err)
	}

	ok, err = VerifyKey("clave-incorrecta", hash)
	if err != nil {
		t.Fatalf("VerifyKey(wrong): %v", err)
	}
	if ok {
		t.Fatal("wrong key verified")
	}
}

func TestHashKeyProducesUniqueSalts(t *testing.T) {
	t.Parallel()

	a, err := HashKey("misma-clave")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	b, err := HashKey("misma-clave")
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same key must differ by salt")
	}
}

func TestVerifyKeyRejectsMalformedHash(t *testing.T) {
	t.Parallel()

	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=3,p=2$notbase64!!$x",
		"$bcrypt$whatever",
	} {
		if _, err := VerifyKey("clave", encoded); err == nil {
			t.Errorf("VerifyKey accepted malformed hash %q", encoded)
		}
	}
}
