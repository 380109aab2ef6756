// Package crypto provides cryptographic operations for tdvault.
//
// Container encryption (the "local" scheme) must match the desktop client
// byte for byte:
//   - 256-byte keys derived via SHA-512 then PBKDF2-HMAC-SHA512
//     (100,000 iterations, or 1 when no passcode is set)
//   - AES-256-IGE with key and IV derived from a 16-byte msg_key using the
//     legacy SHA-1 schedule
//   - msg_key doubles as integrity tag: the first 16 bytes of SHA-1 over
//     the padded plaintext
//
// The credential store uses AES-256-GCM with:
//   - 32-byte key derived from password via PBKDF2-HMAC-SHA256
//   - 12-byte random nonce per encryption operation
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
