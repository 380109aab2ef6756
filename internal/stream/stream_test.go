package stream

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterReaderPrimitives(t *testing.T) {
	w := NewWriter(32)
	w.WriteUint32(0x4B)
	w.WriteInt32(-2)
	w.WriteUint64(0x0102030405060708)
	w.WriteBuffer([]byte("salt"))
	w.WriteRaw([]byte{0xAA, 0xBB})

	r := NewReader(w.Bytes())

	u32, err := r.ReadUint32()
	if err != nil || u32 != 0x4B {
		t.Fatalf("ReadUint32 = %#x, %v", u32, err)
	}
	i32, err := r.ReadInt32()
	if err != nil || i32 != -2 {
		t.Fatalf("ReadInt32 = %d, %v", i32, err)
	}
	u64, err := r.ReadUint64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("ReadUint64 = %#x, %v", u64, err)
	}
	buf, err := r.ReadBuffer()
	if err != nil || string(buf) != "salt" {
		t.Fatalf("ReadBuffer = %q, %v", buf, err)
	}
	raw, err := r.Read(2)
	if err != nil || !bytes.Equal(raw, []byte{0xAA, 0xBB}) {
		t.Fatalf("Read = %x, %v", raw, err)
	}
	if r.Remaining() != 0 {
		t.Errorf("Expected empty reader, %d bytes left", r.Remaining())
	}
}

func TestBigEndianLayout(t *testing.T) {
	w := NewWriter(8)
	w.WriteBuffer([]byte{0x01})
	want := []byte{0x00, 0x00, 0x00, 0x01, 0x01}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("WriteBuffer layout = %x, want %x", w.Bytes(), want)
	}
}

func TestTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(r *Reader) error
	}{
		{"uint32 short", []byte{0x00, 0x01}, func(r *Reader) error { _, err := r.ReadUint32(); return err }},
		{"uint64 short", []byte{0, 0, 0, 0, 0, 0, 0}, func(r *Reader) error { _, err := r.ReadUint64(); return err }},
		{"buffer length short", []byte{0x00}, func(r *Reader) error { _, err := r.ReadBuffer(); return err }},
		{"buffer body short", []byte{0, 0, 0, 8, 1, 2, 3}, func(r *Reader) error { _, err := r.ReadBuffer(); return err }},
		{"negative length", []byte{0xFF, 0xFF, 0xFF, 0xF0}, func(r *Reader) error { _, err := r.ReadBuffer(); return err }},
		{"read past end", []byte{1, 2}, func(r *Reader) error { _, err := r.Read(3); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			if err := tt.read(r); !errors.Is(err, ErrTruncated) {
				t.Errorf("Expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestFailedReadDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	if _, err := r.ReadUint32(); err == nil {
		t.Fatal("Expected error")
	}
	if r.Remaining() != 3 {
		t.Errorf("Failed read consumed input: %d remaining", r.Remaining())
	}
}

func TestNullBuffer(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	buf, err := r.ReadBuffer()
	if err != nil {
		t.Fatalf("ReadBuffer failed: %v", err)
	}
	if len(buf) != 0 {
		t.Errorf("Expected empty buffer, got %x", buf)
	}
}
