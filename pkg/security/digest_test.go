package security_test

import (
	"testing"

	"github.com/darzi-doorstep/darzi-backend/pkg/config"
	"github.com/darzi-doorstep/darzi-backend/pkg/security"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := security.HashSecret("482913", fastParams)
	if err != nil {
		t.Fatalf("HashSecret returned error: %v", err)
	}

	ok, err := security.VerifySecret("482913", hash)
	if err != nil || !ok {
		t.Fatalf("VerifySecret failed for the correct code: ok=%v err=%v", ok, err)
	}

	ok, err = security.VerifySecret("482914", hash)
	if err != nil {
		t.Fatalf("VerifySecret returned error for wrong code: %v", err)
	}
	if ok {
		t.Fatal("VerifySecret returned true for incorrect code")
	}
}

func TestHashSecretSaltsEachDigest(t *testing.T) {
	a, err := security.HashSecret("111111", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	b, err := security.HashSecret("111111", fastParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct digests for the same secret")
	}
}

func TestVerifySecretBadHash(t *testing.T) {
	for _, encoded := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA", "$bcrypt$v=19$m=1,t=1,p=1$a$b"} {
		if _, err := security.VerifySecret("irrelevant", encoded); err == nil {
			t.Fatalf("expected error for malformed hash %q", encoded)
		}
	}
	if _, err := security.HashSecret("", fastParams); err == nil {
		t.Fatal("expected empty secret to fail")
	}
}

func TestNumericCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := security.NumericCode(6)
		if err != nil {
			t.Fatalf("NumericCode: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in %q", code)
			}
		}
	}
	if _, err := security.NumericCode(0); err == nil {
		t.Fatal("expected zero length to fail")
	}
}
