// Package testutil builds throwaway git repositories shaped like a
// fresh Gerrit All-Users project, for exercising the NoteDb
// operations against a real remote.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// SetupGitEnv points git at a hermetic global config so tests do not
// depend on (or touch) the developer's identity and defaults.
func SetupGitEnv(t *testing.T) {
	t.Helper()
	gitconfig := filepath.Join(t.TempDir(), "gitconfig")
	content := "[user]\n\tname = gonotedb test\n\temail = test@localhost\n[init]\n\tdefaultBranch = master\n"
	if err := os.WriteFile(gitconfig, []byte(content), 0644); err != nil {
		t.Fatalf("writing git config: %v", err)
	}
	t.Setenv("GIT_CONFIG_GLOBAL", gitconfig)
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
}

// Git runs a git command in dir, failing the test on error, and
// returns the trimmed stdout.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes a file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
}

// NewRemote creates an empty bare repository acting as the remote.
func NewRemote(t *testing.T) string {
	t.Helper()
	remote := filepath.Join(t.TempDir(), "users.git")
	if err := os.MkdirAll(remote, 0755); err != nil {
		t.Fatalf("mkdir remote: %v", err)
	}
	Git(t, remote, "init", "--bare", ".")
	return remote
}

// PushSeed commits the files of seed as one commit in a scratch
// worktree and pushes it to the given refs of the remote.
func PushSeed(t *testing.T, remote string, seed map[string]string, refs ...string) {
	t.Helper()
	work := t.TempDir()
	Git(t, work, "init", ".")
	for rel, content := range seed {
		WriteFile(t, work, rel, content)
	}
	Git(t, work, "add", "-A")
	Git(t, work, "commit", "-m", "seed")
	for _, ref := range refs {
		Git(t, work, "push", remote, "HEAD:"+ref)
	}
}

// NewAllUsersRemote creates a bare remote initialized the way a fresh
// Gerrit deployment leaves All-Users: refs/meta/config holds a groups
// file mapping uuid 12345 to Administrators, and the group ref was
// created under the historical first-two-characters shard.
func NewAllUsersRemote(t *testing.T) string {
	t.Helper()
	remote := NewRemote(t)
	PushSeed(t, remote,
		map[string]string{"groups": "# groups\n12345\tAdministrators\n"},
		"refs/meta/config", "refs/groups/12/12345")
	return remote
}
