package crypto

import (
	"crypto/aes"
	"crypto/sha1"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gotd/ige"
	"golang.org/x/crypto/pbkdf2"
)

const (
	LocalKeySize      = 256    // Local key and passcode key size
	LocalSaltSize     = 32     // Key file salt size
	MsgKeySize        = 16     // msg_key prefix of every encrypted payload
	PasscodeIters     = 100000 // PBKDF2 iterations when a passcode is set
	NoPasscodeIters   = 1      // PBKDF2 iterations for the empty passcode
	localLengthPrefix = 4
)

var (
	ErrIntegrity                = errors.New("integrity check failed")
	ErrCipherBackendUnavailable = errors.New("cipher backend unavailable")
)

// LocalKeyIterations returns the PBKDF2 iteration count used for passphrase
func LocalKeyIterations(passphrase []byte) int {
	if len(passphrase) == 0 {
		return NoPasscodeIters
	}
	return PasscodeIters
}

// DeriveLocalKey turns a passphrase and a key file salt into a 256-byte key.
// The single-iteration path for an empty passphrase is what the client
// uses when no passcode is set.
func DeriveLocalKey(passphrase, salt []byte) []byte {
	h := sha512.New()
	h.Write(salt)
	h.Write(passphrase)
	h.Write(salt)
	seed := h.Sum(nil)
	defer ClearBytes(seed)

	return pbkdf2.Key(seed, salt, LocalKeyIterations(passphrase), LocalKeySize, sha512.New)
}

// deriveKeyIV computes the AES-256-IGE key and IV from a 256-byte master
// key and a msg_key. The window offsets are part of the on-disk format.
func deriveKeyIV(master, msgKey []byte, outgoing bool) (key, iv [32]byte) {
	x := 8
	if outgoing {
		x = 0
	}

	a := sha1Of(msgKey, master[x:x+32])
	b := sha1Of(master[32+x:48+x], msgKey, master[48+x:64+x])
	c := sha1Of(master[64+x:96+x], msgKey)
	d := sha1Of(msgKey, master[96+x:128+x])

	copy(key[0:], a[0:8])
	copy(key[8:], b[8:20])
	copy(key[20:], c[4:16])

	copy(iv[0:], a[8:20])
	copy(iv[12:], b[0:8])
	copy(iv[20:], c[16:20])
	copy(iv[24:], d[0:8])

	return key, iv
}

func sha1Of(parts ...[]byte) [sha1.Size]byte {
	h := sha1.New()
	for _, p := range parts {
		h.Write(p)
	}
	var sum [sha1.Size]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// EncryptLocal encrypts plain under a 256-byte key and returns
// msg_key || ciphertext.
func EncryptLocal(plain, localKey []byte) ([]byte, error) {
	if len(localKey) != LocalKeySize {
		return nil, fmt.Errorf("invalid local key size %d", len(localKey))
	}

	size := localLengthPrefix + len(plain)
	full := size
	if rem := full % aes.BlockSize; rem != 0 {
		full += aes.BlockSize - rem
	}

	buf := make([]byte, full)
	defer ClearBytes(buf)
	binary.LittleEndian.PutUint32(buf, uint32(size))
	copy(buf[localLengthPrefix:], plain)
	if full > size {
		pad, err := GenerateRandom(full - size)
		if err != nil {
			return nil, err
		}
		copy(buf[size:], pad)
	}

	tag := sha1Of(buf)
	msgKey := tag[:MsgKeySize]

	key, iv := deriveKeyIV(localKey, msgKey, false)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCipherBackendUnavailable, err)
	}

	out := make([]byte, MsgKeySize+full)
	copy(out, msgKey)
	ige.NewIGEEncrypter(block, iv[:]).CryptBlocks(out[MsgKeySize:], buf)

	return out, nil
}

// DecryptLocal reverses EncryptLocal and verifies the msg_key tag
func DecryptLocal(blob, localKey []byte) ([]byte, error) {
	if len(localKey) != LocalKeySize {
		return nil, fmt.Errorf("invalid local key size %d", len(localKey))
	}
	if len(blob) < MsgKeySize+aes.BlockSize || (len(blob)-MsgKeySize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad encrypted size %d", ErrIntegrity, len(blob))
	}

	msgKey := blob[:MsgKeySize]
	ciphertext := blob[MsgKeySize:]

	key, iv := deriveKeyIV(localKey, msgKey, false)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCipherBackendUnavailable, err)
	}

	plain := make([]byte, len(ciphertext))
	ige.NewIGEDecrypter(block, iv[:]).CryptBlocks(plain, ciphertext)
	defer ClearBytes(plain)

	tag := sha1Of(plain)
	if !ConstantTimeCompare(tag[:MsgKeySize], msgKey) {
		return nil, ErrIntegrity
	}

	size := binary.LittleEndian.Uint32(plain)
	full := uint32(len(plain))
	if size < localLengthPrefix || size > full || size+aes.BlockSize <= full {
		return nil, fmt.Errorf("%w: bad payload length %d", ErrIntegrity, size)
	}

	return append([]byte(nil), plain[localLengthPrefix:size]...), nil
}
