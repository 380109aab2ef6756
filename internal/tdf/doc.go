// Package tdf implements the file envelope and file naming of a tdata
// container.
//
// Every file on disk is one frame:
//
//	"TDF$" | version (LE32) | payload | MD5 digest (16 bytes)
//
// The digest covers payload, the payload length as LE32, the raw version
// bytes and the magic, in that order.
//
// Account files are named after an MD5 of the slot label ("data",
// "data#2", ...) followed by an "s" suffix.
package tdf
