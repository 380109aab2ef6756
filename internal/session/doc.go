// Package session converts raw (dc, auth key) pairs to and from the
// session formats of MTProto client libraries.
//
// Telethon string sessions are produced directly and parsed with gotd's
// decoder; gotd session files are written through gotd's session.Loader.
package session
