package tdf

import (
	"bytes"
	"crypto/md5"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/illarion/tdvault/internal/stream"
)

const (
	DefaultVersion uint32 = 0x01000000
	DigestSize            = md5.Size
	headerSize            = len(magic) + 4
)

var magic = []byte("TDF$")

var (
	ErrInvalidMagic   = errors.New("invalid magic")
	ErrDigestMismatch = errors.New("digest mismatch")
)

// Frame is a decoded file envelope
type Frame struct {
	Version uint32
	Payload []byte
}

// Decode validates and unwraps a raw file
func Decode(raw []byte) (*Frame, error) {
	if len(raw) < len(magic) || !bytes.Equal(raw[:len(magic)], magic) {
		return nil, ErrInvalidMagic
	}
	if len(raw) < headerSize+DigestSize {
		return nil, fmt.Errorf("%w: frame is %d bytes", stream.ErrTruncated, len(raw))
	}

	versionBytes := raw[len(magic):headerSize]
	payload := raw[headerSize : len(raw)-DigestSize]
	stored := raw[len(raw)-DigestSize:]

	expected := digest(payload, versionBytes)
	if subtle.ConstantTimeCompare(stored, expected[:]) != 1 {
		return nil, ErrDigestMismatch
	}

	return &Frame{
		Version: binary.LittleEndian.Uint32(versionBytes),
		Payload: payload,
	}, nil
}

// Encode wraps payload into a frame with the given version
func Encode(payload []byte, version uint32) []byte {
	out := make([]byte, 0, headerSize+len(payload)+DigestSize)
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint32(out, version)
	out = append(out, payload...)

	sum := digest(payload, out[len(magic):headerSize])
	return append(out, sum[:]...)
}

// Read reads and validates a frame file
func Read(path string) (*Frame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}

// Write writes payload as a frame file with the default version
func Write(path string, payload []byte, perm os.FileMode) error {
	return os.WriteFile(path, Encode(payload, DefaultVersion), perm)
}

func digest(payload, versionBytes []byte) [DigestSize]byte {
	h := md5.New()
	h.Write(payload)
	h.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(payload))))
	h.Write(versionBytes)
	h.Write(magic)

	var sum [DigestSize]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
