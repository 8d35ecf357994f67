package privacy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"vision-backend/internal/models"
)

const (
	// Fixed default salt: every install derives the same key from the
	// same password unless a per-installation salt is configured.
	defaultSalt = "building_management_ai_2026"

	kdfIterations = 100000
	keyLen        = 32
)

// Algorithm identifies the cipher suite for status reporting.
const Algorithm = "AES-256-GCM (PBKDF2-HMAC-SHA256 key)"

// Codec performs authenticated encryption of structured or binary
// payloads with a password-derived key.
type Codec struct {
	aead cipher.AEAD
}

// DeriveKey stretches a human-chosen password into a 32-byte key.
// Deterministic for a given password+salt pair.
func DeriveKey(password, salt string) []byte {
	if salt == "" {
		salt = defaultSalt
	}
	return pbkdf2.Key([]byte(password), []byte(salt), kdfIterations, keyLen, sha256.New)
}

// NewCodec builds a codec from a password using the default salt.
func NewCodec(password string) (*Codec, error) {
	return NewCodecWithSalt(password, "")
}

// NewCodecWithSalt builds a codec with a per-installation salt.
func NewCodecWithSalt(password, salt string) (*Codec, error) {
	return NewCodecFromKey(DeriveKey(password, salt))
}

// NewCodecFromKey builds a codec from a raw 32-byte key.
func NewCodecFromKey(key []byte) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// payloadKind tags the first byte of the plaintext so Decrypt can hand
// back the same shape that was encrypted.
const (
	kindRaw        byte = 0x00
	kindStructured byte = 0x01
)

// Encrypt seals a payload and returns base64 ciphertext. Structured
// values (anything that is not []byte or string) are JSON-marshaled
// first. Fails closed: any marshal or seal error returns "" and err.
func (c *Codec) Encrypt(value interface{}) (string, error) {
	var plain []byte
	kind := kindRaw

	switch v := value.(type) {
	case []byte:
		plain = v
	case string:
		plain = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal payload: %w", err)
		}
		plain = b
		kind = kindStructured
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	msg := make([]byte, 1+len(plain))
	msg[0] = kind
	copy(msg[1:], plain)

	sealed := c.aead.Seal(nonce, nonce, msg, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens base64 ciphertext. Tampering or a wrong key yields
// models.ErrDecryptionFailed, never corrupted output. When asStructured
// is true and the payload was structured, the result is unmarshaled
// into a map; otherwise raw bytes are returned.
func (c *Codec) Decrypt(ciphertext string, asStructured bool) (interface{}, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad encoding", models.ErrDecryptionFailed)
	}
	if len(sealed) < c.aead.NonceSize()+1 {
		return nil, fmt.Errorf("%w: ciphertext too short", models.ErrDecryptionFailed)
	}

	nonce, body := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	msg, err := c.aead.Open(nil, nonce, body, nil)
	if err != nil || len(msg) < 1 {
		return nil, fmt.Errorf("%w: authentication failed", models.ErrDecryptionFailed)
	}

	kind, plain := msg[0], msg[1:]
	if asStructured && kind == kindStructured {
		var out map[string]interface{}
		if err := json.Unmarshal(plain, &out); err != nil {
			return nil, fmt.Errorf("%w: payload not structured", models.ErrDecryptionFailed)
		}
		return out, nil
	}
	return append([]byte(nil), plain...), nil
}

// DecryptInto opens ciphertext and unmarshals a structured payload into
// dst. Used to rehydrate typed records from the store.
func (c *Codec) DecryptInto(ciphertext string, dst interface{}) error {
	raw, err := c.Decrypt(ciphertext, false)
	if err != nil {
		return err
	}
	plain, ok := raw.([]byte)
	if !ok {
		return fmt.Errorf("%w: unexpected payload type", models.ErrDecryptionFailed)
	}
	if err := json.Unmarshal(plain, dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrDecryptionFailed, err)
	}
	return nil
}
