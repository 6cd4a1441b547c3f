package password

import "testing"

func TestHashVerify(t *testing.T) {
	encoded, err := Hash("s3cret-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !Verify("s3cret-password", encoded) {
		t.Fatalf("expected password to verify")
	}
	if Verify("wrong-password", encoded) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	if Verify("anything", "$argon2id$v=19$broken") {
		t.Fatalf("malformed hash must not verify")
	}
	if Verify("anything", "") {
		t.Fatalf("empty hash must not verify")
	}
}

func TestGenerate(t *testing.T) {
	a, err := Generate(12)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(a) != 12 {
		t.Fatalf("expected 12 chars, got %d", len(a))
	}

	b, err := Generate(12)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct passwords")
	}
}
