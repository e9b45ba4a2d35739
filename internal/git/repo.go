package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Repository is an opened local working copy of a remote project.
// Clones are cached under an explicit cache directory, keyed by the
// last path component of the remote URL. The working tree is a shared
// mutable resource: only one logical operation may use a Repository at
// a time.
type Repository struct {
	runner *Runner

	// Dir is the local working copy.
	Dir string
	// URL is the remote the repository was opened against.
	URL string
}

// Open clones url under cacheDir on first use. When the clone already
// exists, the origin remote is re-pointed at url so a cached clone can
// be reused against a moved remote.
func Open(ctx context.Context, runner *Runner, cacheDir, url string) (*Repository, error) {
	dir := filepath.Join(cacheDir, cloneName(url))
	repo := &Repository{runner: runner, Dir: dir, URL: url}

	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking clone dir: %w", err)
		}
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
		if _, err := runner.Run(ctx, "", "clone", url, dir); err != nil {
			return nil, fmt.Errorf("cloning %s: %w", url, err)
		}
		return repo, nil
	}

	if _, err := runner.Run(ctx, dir, "remote", "set-url", "origin", url); err != nil {
		return nil, fmt.Errorf("updating origin of %s: %w", dir, err)
	}
	return repo, nil
}

// cloneName derives the cache key for a remote URL: the last path
// component, without a .git suffix.
func cloneName(url string) string {
	trimmed := strings.TrimSuffix(url, ".git")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return trimmed
}

// run executes a git command inside the working copy.
func (r *Repository) run(ctx context.Context, args ...string) (RunResult, error) {
	return r.runner.Run(ctx, r.Dir, args...)
}

// Path resolves a path relative to the working tree root.
func (r *Repository) Path(elem ...string) string {
	return filepath.Join(append([]string{r.Dir}, elem...)...)
}

// ReadFile reads a file from the working tree.
func (r *Repository) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(r.Path(rel))
}

// WriteFile writes a file into the working tree, creating parent
// directories as needed.
func (r *Repository) WriteFile(rel string, data []byte) error {
	p := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(rel), err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// RemoveFile deletes a file from the working tree. Removing a file
// that is already gone is not an error.
func (r *Repository) RemoveFile(rel string) error {
	err := os.Remove(r.Path(rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	return nil
}

// WalkFiles returns the relative path of every regular file in the
// working tree, skipping git metadata. Gerrit stores wrote identity
// files at several nesting depths over the years, so callers cannot
// assume a uniform layout and must walk the whole tree.
func (r *Repository) WalkFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.Dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(r.Dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", r.Dir, err)
	}
	return files, nil
}
