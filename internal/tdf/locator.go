package tdf

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// KeyFile is the key file name written by current clients.
	KeyFile = "key_datas"
	// LegacyKeyFile is accepted on read only.
	LegacyKeyFile = "key_data"

	slotSuffix  = "s"
	slotNameLen = 16
)

// SlotName returns the base name of the account file for a slot
func SlotName(index uint32) string {
	label := "data"
	if index > 0 {
		label = fmt.Sprintf("data#%d", uint64(index)+1)
	}

	sum := md5.Sum([]byte(label))
	part := make([]byte, 8)
	for i := range part {
		part[i] = sum[7-i]
	}

	return reverse(strings.ToUpper(hex.EncodeToString(part)))
}

// SlotFile returns the on-disk file name for a slot
func SlotFile(index uint32) string {
	return SlotName(index) + slotSuffix
}

// IsSlotFile reports whether name looks like an account file
func IsSlotFile(name string) bool {
	if len(name) != slotNameLen+len(slotSuffix) || !strings.HasSuffix(name, slotSuffix) {
		return false
	}
	for _, c := range name[:slotNameLen] {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
