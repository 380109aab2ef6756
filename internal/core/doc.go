// Package core reads and writes tdata credential containers.
//
// Core operations include:
//   - Extract: Decode every account slot of a container
//   - ExtractAll: Extract several containers on a bounded worker pool
//   - Build: Write a new container from (dc, auth key) credentials
//   - Validate: Check that a directory holds a written container
//   - NeedsPasscode: Probe whether a container is passcode protected
//
// Extraction fails as a whole only when the key file cannot be trusted.
// Each account slot otherwise carries either a credential or its own
// decode error.
//
// The package also holds the encrypted local credential Store and the
// Summary/Diff helpers used to compare containers.
package core
