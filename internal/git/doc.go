// Package git checks whether the secret files of a tdata directory are
// exposed to a git repository.
//
// Checks performed:
//   - Whether key or account files are tracked by git (should not be)
//   - Whether key or account files are covered by .gitignore (should be)
package git
