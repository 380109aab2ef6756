package git

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/illarion/tdvault/internal/security"
	"github.com/illarion/tdvault/internal/tdf"
)

// ContainerStatus reports how git sees the secret files of a container
type ContainerStatus struct {
	IsRepo    bool
	Files     []string // Key and account files found in the directory
	Tracked   []string // Secret files tracked by git (bad)
	Unignored []string // Secret files not covered by .gitignore (warning)
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir

	// git check-ignore returns exit code 0 if file is ignored
	return cmd.Run() == nil
}

// secretFiles lists the files of dir that hold key material
func secretFiles(dir string) ([]string, error) {
	root, err := security.Open(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	names, err := root.List()
	if err != nil {
		return nil, err
	}

	var out []string
	for _, name := range names {
		if name == tdf.KeyFile || name == tdf.LegacyKeyFile || tdf.IsSlotFile(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

// CheckContainer checks whether the key and account files of a container
// directory are tracked or left unignored by git
func CheckContainer(dir string) (*ContainerStatus, error) {
	status := &ContainerStatus{}

	files, err := secretFiles(dir)
	if err != nil {
		return nil, err
	}
	status.Files = files

	if !IsGitRepo(dir) {
		return status, nil
	}
	status.IsRepo = true

	for _, file := range files {
		if IsTracked(dir, file) {
			status.Tracked = append(status.Tracked, file)
		}
		if !IsIgnored(dir, file) {
			status.Unignored = append(status.Unignored, file)
		}
	}

	return status, nil
}

// FormatStatus formats git status for display
func FormatStatus(status *ContainerStatus) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit Integration:\n")

	if len(status.Tracked) > 0 {
		result.WriteString(fmt.Sprintf("   error: %d credential file(s) tracked by git:\n", len(status.Tracked)))
		for _, file := range status.Tracked {
			result.WriteString(fmt.Sprintf("      - %s (run: git rm --cached %s)\n", file, file))
		}
	} else {
		result.WriteString("   ok: no credential files tracked by git\n")
	}

	trackedSet := make(map[string]bool, len(status.Tracked))
	for _, f := range status.Tracked {
		trackedSet[f] = true
	}

	warned := 0
	for _, file := range status.Unignored {
		// Tracked files were already reported
		if !trackedSet[file] {
			result.WriteString(fmt.Sprintf("   warning: %s not in .gitignore\n", file))
			warned++
		}
	}
	if warned == 0 && len(status.Unignored) == 0 && len(status.Files) > 0 {
		result.WriteString(fmt.Sprintf("   ok: %d credential file(s) in .gitignore\n", len(status.Files)))
	}

	return result.String()
}
