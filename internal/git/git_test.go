package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/illarion/tdvault/internal/tdf"
)

func gitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}

func TestCheckContainerOutsideRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	if IsGitRepo(dir) {
		t.Skip("temp dir is inside a git repository")
	}
	writeFile(t, dir, tdf.KeyFile, "k")

	status, err := CheckContainer(dir)
	if err != nil {
		t.Fatalf("CheckContainer failed: %v", err)
	}
	if status.IsRepo {
		t.Error("expected IsRepo to be false")
	}
	if len(status.Files) != 1 {
		t.Errorf("expected 1 file, got %v", status.Files)
	}
	if FormatStatus(status) != "" {
		t.Error("expected empty status outside a repository")
	}
}

func TestCheckContainerInRepo(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	gitCmd(t, dir, "init", "-q")
	gitCmd(t, dir, "config", "user.email", "test@example.com")
	gitCmd(t, dir, "config", "user.name", "test")

	slot := tdf.SlotFile(0)
	writeFile(t, dir, tdf.KeyFile, "k")
	writeFile(t, dir, slot, "s")
	writeFile(t, dir, "notes.txt", "unrelated")
	writeFile(t, dir, ".gitignore", tdf.KeyFile+"\n")
	gitCmd(t, dir, "add", slot)

	status, err := CheckContainer(dir)
	if err != nil {
		t.Fatalf("CheckContainer failed: %v", err)
	}
	if !status.IsRepo {
		t.Fatal("expected IsRepo to be true")
	}
	if len(status.Files) != 2 {
		t.Errorf("expected key and slot file, got %v", status.Files)
	}
	if len(status.Tracked) != 1 || status.Tracked[0] != slot {
		t.Errorf("expected %s to be tracked, got %v", slot, status.Tracked)
	}
	if len(status.Unignored) != 1 || status.Unignored[0] != slot {
		t.Errorf("expected %s to be unignored, got %v", slot, status.Unignored)
	}

	out := FormatStatus(status)
	if !strings.Contains(out, "git rm --cached "+slot) {
		t.Errorf("expected removal hint, got:\n%s", out)
	}
	if strings.Contains(out, "warning") {
		t.Errorf("tracked file should not be reported twice:\n%s", out)
	}
}

func TestCheckContainerMissingDir(t *testing.T) {
	if _, err := CheckContainer(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing directory")
	}
}
