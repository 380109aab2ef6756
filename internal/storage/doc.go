// Package storage provides the BBolt database behind the tdvault
// credential store.
//
// Database structure uses four buckets:
//   - config: KDF parameters (salt, iterations), timestamps, store id (unencrypted)
//   - index: Credential labels, data centers, fingerprints (unencrypted, for store ls)
//   - blobs: Encrypted auth keys, keyed by entry id
//   - private: Encrypted password check value
//
// The unencrypted index lets store ls and store rm work without the
// store password. Auth keys never leave the blobs bucket in clear.
package storage
