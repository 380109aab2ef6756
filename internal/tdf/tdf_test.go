package tdf

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/illarion/tdvault/internal/stream"
)

func TestFrameRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, KeyFile)

	payloads := [][]byte{
		{},
		[]byte("x"),
		bytes.Repeat([]byte{0x5A}, 4096),
	}

	for _, payload := range payloads {
		if err := Write(path, payload, 0600); err != nil {
			t.Fatalf("Failed to write frame: %v", err)
		}
		frame, err := Read(path)
		if err != nil {
			t.Fatalf("Failed to read frame: %v", err)
		}
		if !bytes.Equal(frame.Payload, payload) {
			t.Errorf("Payload mismatch: got %d bytes, want %d", len(frame.Payload), len(payload))
		}
		if frame.Version != DefaultVersion {
			t.Errorf("Version mismatch: got %#x, want %#x", frame.Version, DefaultVersion)
		}
	}
}

func TestEncodeLayout(t *testing.T) {
	payload := []byte("payload")
	raw := Encode(payload, DefaultVersion)

	if string(raw[:4]) != "TDF$" {
		t.Errorf("Magic mismatch: %q", raw[:4])
	}
	if v := binary.LittleEndian.Uint32(raw[4:8]); v != DefaultVersion {
		t.Errorf("Version mismatch: %#x", v)
	}

	h := md5.New()
	h.Write(payload)
	h.Write([]byte{7, 0, 0, 0})
	h.Write([]byte{0x00, 0x00, 0x00, 0x01})
	h.Write([]byte("TDF$"))
	if !bytes.Equal(raw[len(raw)-16:], h.Sum(nil)) {
		t.Error("Digest does not match MD5(payload || len || version || magic)")
	}
}

func TestDecodeDetectsEveryFlippedBit(t *testing.T) {
	payload := []byte("abcdefgh")
	raw := Encode(payload, DefaultVersion)

	// Payload region and digest region.
	for i := headerSize; i < len(raw); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), raw...)
			corrupt[i] ^= 1 << bit
			if _, err := Decode(corrupt); !errors.Is(err, ErrDigestMismatch) {
				t.Fatalf("Byte %d bit %d: expected ErrDigestMismatch, got %v", i, bit, err)
			}
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	valid := Encode([]byte("data"), DefaultVersion)

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"empty", nil, ErrInvalidMagic},
		{"short magic", []byte("TD"), ErrInvalidMagic},
		{"wrong magic", append([]byte("TDF#"), valid[4:]...), ErrInvalidMagic},
		{"header only", valid[:8], stream.ErrTruncated},
		{"missing digest byte", valid[:len(valid)-1], ErrDigestMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.raw); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestSlotNames(t *testing.T) {
	want := []string{
		"D877F783D5D3EF8C",
		"A7FDF864FBC10B77",
		"F8806DD0C461824F",
		"C2B05980D9127787",
	}
	for i, name := range want {
		if got := SlotName(uint32(i)); got != name {
			t.Errorf("SlotName(%d) = %s, want %s", i, got, name)
		}
	}
	if got := SlotFile(0); got != "D877F783D5D3EF8Cs" {
		t.Errorf("SlotFile(0) = %s", got)
	}
}

func TestIsSlotFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{SlotFile(0), true},
		{SlotFile(7), true},
		{KeyFile, false},
		{SlotName(0), false},
		{"d877f783d5d3ef8cs", false},
		{"D877F783D5D3EF8Cx", false},
		{"ZZ77F783D5D3EF8Cs", false},
	}
	for _, tt := range tests {
		if got := IsSlotFile(tt.name); got != tt.want {
			t.Errorf("IsSlotFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
