package crypto

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func testSeed(t *testing.T, password string) []byte {
	t.Helper()
	seed, err := DeriveSeed(password, "00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("derive seed: %v", err)
	}
	return seed
}

func TestSealOpen(t *testing.T) {
	seed := testSeed(t, "abc123")
	plain := []byte("0xdeadbeef")

	sealed, err := Seal(seed, plain)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if bytes.Contains(sealed.Data, plain) {
		t.Fatal("ciphertext contains plaintext")
	}

	got, err := Open(seed, sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("got %q, want %q", got, plain)
	}
}

func TestSealFreshIV(t *testing.T) {
	seed := testSeed(t, "abc123")

	a, _ := Seal(seed, []byte("same"))
	b, _ := Seal(seed, []byte("same"))
	if bytes.Equal(a.IV, b.IV) {
		t.Fatal("iv reused across calls")
	}
	if a.Equal(b) {
		t.Fatal("identical plaintexts produced identical ciphertexts")
	}
}

func TestOpenWrongSeed(t *testing.T) {
	sealed, _ := Seal(testSeed(t, "abc123"), []byte("secret"))

	_, err := Open(testSeed(t, "xyz789"), sealed)
	if !errors.Is(err, ErrDecryption) {
		t.Fatalf("expected ErrDecryption, got %v", err)
	}
}

func TestOpenTampered(t *testing.T) {
	seed := testSeed(t, "abc123")
	sealed, _ := Seal(seed, []byte("secret"))

	flipped := sealed.Clone()
	flipped.Data[0] ^= 0xff
	if _, err := Open(seed, flipped); !errors.Is(err, ErrDecryption) {
		t.Errorf("tampered data: expected ErrDecryption, got %v", err)
	}

	badIV := sealed.Clone()
	badIV.IV = badIV.IV[:4]
	if _, err := Open(seed, badIV); !errors.Is(err, ErrDecryption) {
		t.Errorf("short iv: expected ErrDecryption, got %v", err)
	}

	badVersion := sealed.Clone()
	badVersion.Version = 9
	if _, err := Open(seed, badVersion); !errors.Is(err, ErrDecryption) {
		t.Errorf("version: expected ErrDecryption, got %v", err)
	}
}

func TestSealJSONAndMarker(t *testing.T) {
	seed := testSeed(t, "abc123")
	value := map[string]string{"keychain": "x"}

	blob, err := SealJSON(seed, value)
	if err != nil {
		t.Fatalf("seal json: %v", err)
	}
	if !IsSealed(blob) {
		t.Fatal("sealed blob not detected as sealed")
	}

	plain, _ := json.Marshal(value)
	if IsSealed(plain) {
		t.Fatal("plaintext detected as sealed")
	}
	if IsSealed([]byte("not json")) {
		t.Fatal("garbage detected as sealed")
	}

	got, err := OpenJSON(seed, blob)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	if !bytes.Equal(got, plain) {
		t.Fatalf("got %s, want %s", got, plain)
	}

	if _, err := OpenJSON(seed, []byte("{")); !errors.Is(err, ErrDecryption) {
		t.Fatalf("malformed blob: expected ErrDecryption, got %v", err)
	}
}
