package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bnema/exposure-detect/internal/domain"
)

const (
	rollingKeyInfo   = "EN-RPIK"
	identifierPrefix = "EN-RPI"
	rollingKeySize   = 16
)

// Deriver turns daily tracing keys into rolling proximity identifiers.
// The zero value is ready to use and safe for concurrent use.
type Deriver struct{}

// Derive returns the identifier broadcast during window w of the key's day.
func (Deriver) Derive(key domain.DailyTracingKey, w int) (domain.RollingProximityIdentifier, error) {
	return Derive(key, w)
}

// DeriveDay returns the identifiers of every window of the key's day.
func (Deriver) DeriveDay(key domain.DailyTracingKey) ([domain.WindowsPerDay]domain.RollingProximityIdentifier, error) {
	return DeriveDay(key)
}

func Derive(key domain.DailyTracingKey, w int) (domain.RollingProximityIdentifier, error) {
	if w < 0 || w >= domain.WindowsPerDay {
		return domain.RollingProximityIdentifier{}, fmt.Errorf("%w: %d", domain.ErrWindowOutOfRange, w)
	}

	block, err := identifierCipher(key)
	if err != nil {
		return domain.RollingProximityIdentifier{}, err
	}

	return encryptWindow(block, w), nil
}

func DeriveDay(key domain.DailyTracingKey) ([domain.WindowsPerDay]domain.RollingProximityIdentifier, error) {
	var ids [domain.WindowsPerDay]domain.RollingProximityIdentifier

	block, err := identifierCipher(key)
	if err != nil {
		return ids, err
	}

	for w := range ids {
		ids[w] = encryptWindow(block, w)
	}
	return ids, nil
}

func identifierCipher(key domain.DailyTracingKey) (cipher.Block, error) {
	var rollingKey [rollingKeySize]byte
	defer clear(rollingKey[:])

	r := hkdf.New(sha256.New, key.Data[:], nil, []byte(rollingKeyInfo))
	if _, err := io.ReadFull(r, rollingKey[:]); err != nil {
		return nil, fmt.Errorf("%w: expand rolling key: %v", domain.ErrInternalDerivationFailure, err)
	}

	block, err := aes.NewCipher(rollingKey[:])
	if err != nil {
		return nil, fmt.Errorf("%w: create identifier cipher: %v", domain.ErrInternalDerivationFailure, err)
	}
	return block, nil
}

func encryptWindow(block cipher.Block, w int) domain.RollingProximityIdentifier {
	var padded [aes.BlockSize]byte
	copy(padded[:], identifierPrefix)
	binary.LittleEndian.PutUint32(padded[aes.BlockSize-4:], uint32(w))

	var id domain.RollingProximityIdentifier
	block.Encrypt(id[:], padded[:])
	return id
}
