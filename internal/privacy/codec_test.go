package privacy

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"vision-backend/internal/models"
)

// TestDeriveKeyDeterministic verifies the same password and salt always
// yield the same 32-byte key, and changing either changes the key.
func TestDeriveKeyDeterministic(t *testing.T) {
	k1 := DeriveKey("password", "")
	k2 := DeriveKey("password", "")
	if !bytes.Equal(k1, k2) {
		t.Fatal("key derivation is not deterministic")
	}
	if len(k1) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(k1))
	}
	if bytes.Equal(k1, DeriveKey("other", "")) {
		t.Error("different passwords produced the same key")
	}
	if bytes.Equal(k1, DeriveKey("password", "site-salt")) {
		t.Error("different salts produced the same key")
	}
}

// TestEncryptDecryptRaw verifies binary payloads round-trip.
func TestEncryptDecryptRaw(t *testing.T) {
	codec, err := NewCodec("test_password")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	payload := []byte{0x00, 0xFF, 0x10, 0x20, 0x30}
	ciphertext, err := codec.Encrypt(payload)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if ciphertext == "" {
		t.Fatal("empty ciphertext")
	}

	out, err := codec.Decrypt(ciphertext, false)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	plain, ok := out.([]byte)
	if !ok {
		t.Fatalf("expected []byte, got %T", out)
	}
	if !bytes.Equal(plain, payload) {
		t.Errorf("round trip mismatch: %v != %v", plain, payload)
	}
}

// TestEncryptDecryptStructured verifies typed records survive the
// structured path.
func TestEncryptDecryptStructured(t *testing.T) {
	codec, err := NewCodec("test_password")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}

	record := models.AnalysisRecord{
		Timestamp:   time.Now().Truncate(time.Millisecond),
		RegionCount: 3,
		Intensity:   4.2,
		Analysis:    "routine corridor traffic",
		SessionID:   "session-1",
	}

	ciphertext, err := codec.Encrypt(record)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	out, err := codec.Decrypt(ciphertext, true)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	m, ok := out.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", out)
	}
	if m["analysis"] != record.Analysis {
		t.Errorf("analysis text mismatch: %v", m["analysis"])
	}
	if m["session_id"] != record.SessionID {
		t.Errorf("session id mismatch: %v", m["session_id"])
	}

	var back models.AnalysisRecord
	if err := codec.DecryptInto(ciphertext, &back); err != nil {
		t.Fatalf("DecryptInto failed: %v", err)
	}
	if back.RegionCount != record.RegionCount || back.Analysis != record.Analysis {
		t.Errorf("typed round trip mismatch: %+v", back)
	}
}

// TestNoncesVary verifies encrypting the same value twice never yields
// the same ciphertext.
func TestNoncesVary(t *testing.T) {
	codec, _ := NewCodec("test_password")

	c1, _ := codec.Encrypt("same value")
	c2, _ := codec.Encrypt("same value")
	if c1 == c2 {
		t.Error("identical ciphertexts for repeated encryption")
	}
}

// TestTamperedCiphertextFailsClosed verifies any modification to the
// ciphertext is rejected with ErrDecryptionFailed, never garbage output.
func TestTamperedCiphertextFailsClosed(t *testing.T) {
	codec, _ := NewCodec("test_password")

	ciphertext, err := codec.Encrypt([]byte("sensitive movement record"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	raw, _ := base64.StdEncoding.DecodeString(ciphertext)
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := codec.Decrypt(tampered, false); !errors.Is(err, models.ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

// TestWrongKeyFailsClosed verifies a codec with a different password
// cannot open the ciphertext.
func TestWrongKeyFailsClosed(t *testing.T) {
	codec1, _ := NewCodec("password_one")
	codec2, _ := NewCodec("password_two")

	ciphertext, _ := codec1.Encrypt("secret")
	if _, err := codec2.Decrypt(ciphertext, false); !errors.Is(err, models.ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

// TestMalformedCiphertextRejected covers bad base64 and truncated
// inputs.
func TestMalformedCiphertextRejected(t *testing.T) {
	codec, _ := NewCodec("test_password")

	for _, input := range []string{"not base64 !!!", "", base64.StdEncoding.EncodeToString([]byte("xx"))} {
		if _, err := codec.Decrypt(input, false); !errors.Is(err, models.ErrDecryptionFailed) {
			t.Errorf("input %q: expected ErrDecryptionFailed, got %v", input, err)
		}
	}
}
