package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&opHandler{w: &buf, opID: "DeleteUser-1a2b3c4d"})

	logger.Info("deleted user ref", "user", "alice", "ref", "refs/users/42/42")

	line := strings.TrimSuffix(buf.String(), "\n")
	fields := strings.Split(line, "\t")
	if len(fields) != 6 {
		t.Fatalf("got %d fields, want 6: %q", len(fields), line)
	}
	if fields[1] != "INFO" {
		t.Errorf("level = %q", fields[1])
	}
	if fields[2] != "DeleteUser-1a2b3c4d" {
		t.Errorf("opID = %q", fields[2])
	}
	if fields[3] != "deleted user ref" {
		t.Errorf("message = %q", fields[3])
	}
	if fields[4] != "user=alice" || fields[5] != "ref=refs/users/42/42" {
		t.Errorf("attrs = %q %q", fields[4], fields[5])
	}
}

func TestOpHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&opHandler{w: &buf, opID: "op"}).With("remote", "/srv/All-Users.git")

	logger.Warn("push rejected")

	if !strings.Contains(buf.String(), "remote=/srv/All-Users.git") {
		t.Errorf("pre-set attr missing: %q", buf.String())
	}
}

func TestNewLogger_WritesFile(t *testing.T) {
	dir := t.TempDir()
	logger, f, err := newLogger(dir, "op-1")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(dir, "gonotedb.log"))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file content = %q", data)
	}
}
