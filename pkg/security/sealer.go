package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/angelmondragon/canteen-backend/pkg/config"
)

const sealScheme = "argon2id-xchacha20poly1305"

// ErrInvalidSealed signals a malformed sealed blob.
var ErrInvalidSealed = errors.New("invalid sealed payload")

// ErrPassphraseRequired is returned when no wallet key passphrase is configured.
var ErrPassphraseRequired = errors.New("wallet key passphrase is required")

// ArgonParams captures the Argon2id parameters embedded into each sealed blob.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
}

// KeySealer encrypts wallet private keys at rest. Each blob carries its own
// salt and derivation parameters so old blobs stay readable after tuning.
type KeySealer struct {
	passphrase []byte
	params     ArgonParams
}

func NewKeySealer(cfg config.WalletKeyConfig) (*KeySealer, error) {
	if strings.TrimSpace(cfg.Passphrase) == "" {
		return nil, ErrPassphraseRequired
	}
	return &KeySealer{
		passphrase: []byte(cfg.Passphrase),
		params:     paramsFromConfig(cfg),
	}, nil
}

// Seal returns "$<scheme>$v=1$m=..,t=..,p=..$<salt>$<nonce|ciphertext>".
func (s *KeySealer) Seal(plaintext []byte) ([]byte, error) {
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("plaintext cannot be empty")
	}
	salt := make([]byte, s.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(s.params, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	box := aead.Seal(nonce, nonce, plaintext, []byte(sealScheme))

	encoded := fmt.Sprintf("$%s$v=1$m=%d,t=%d,p=%d$%s$%s",
		sealScheme,
		s.params.Memory, s.params.Time, s.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(box),
	)
	return []byte(encoded), nil
}

// Open reverses Seal. A wrong passphrase and a tampered blob both fail.
func (s *KeySealer) Open(sealed []byte) ([]byte, error) {
	params, salt, box, err := decodeSealed(string(sealed))
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(s.deriveKey(params, salt))
	if err != nil {
		return nil, err
	}
	if len(box) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrInvalidSealed
	}
	nonce, ciphertext := box[:aead.NonceSize()], box[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(sealScheme))
	if err != nil {
		return nil, fmt.Errorf("open sealed key: %w", err)
	}
	return plaintext, nil
}

func (s *KeySealer) deriveKey(params ArgonParams, salt []byte) []byte {
	return argon2.IDKey(s.passphrase, salt, params.Time, params.Memory, params.Parallelism, chacha20poly1305.KeySize)
}

func paramsFromConfig(cfg config.WalletKeyConfig) ArgonParams {
	threads := clampInt(cfg.ArgonParallelism, 1, 255)
	return ArgonParams{
		Memory:      clampUint32(cfg.ArgonMemoryKB, 8, 512*1024),
		Time:        clampUint32(cfg.ArgonTime, 1, 10),
		Parallelism: uint8(threads),
		SaltLen:     clampUint32(cfg.ArgonSaltLen, 8, 64),
	}
}

func decodeSealed(encoded string) (ArgonParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != sealScheme || parts[2] != "v=1" {
		return ArgonParams{}, nil, nil, ErrInvalidSealed
	}

	var params ArgonParams
	for _, token := range strings.Split(parts[3], ",") {
		keyValue := strings.SplitN(token, "=", 2)
		if len(keyValue) != 2 {
			return ArgonParams{}, nil, nil, ErrInvalidSealed
		}
		key, value := keyValue[0], keyValue[1]
		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return ArgonParams{}, nil, nil, ErrInvalidSealed
			}
			params.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return ArgonParams{}, nil, nil, ErrInvalidSealed
			}
			params.Time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil {
				return ArgonParams{}, nil, nil, ErrInvalidSealed
			}
			params.Parallelism = uint8(v)
		}
	}
	if params.Memory == 0 || params.Time == 0 || params.Parallelism == 0 {
		return ArgonParams{}, nil, nil, ErrInvalidSealed
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ArgonParams{}, nil, nil, ErrInvalidSealed
	}
	box, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ArgonParams{}, nil, nil, ErrInvalidSealed
	}
	params.SaltLen = uint32(len(salt))

	return params, salt, box, nil
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func clampUint32(value, min, max int) uint32 {
	return uint32(clampInt(value, min, max))
}
