package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// FetchHead is the transient pointer a fetch leaves behind.
const FetchHead = "FETCH_HEAD"

// RefNotFoundError reports a ref that does not exist on the remote.
// Many callers probe for existence, so this error is expected and
// recoverable; match it with errors.As.
type RefNotFoundError struct {
	Ref string
	Err error
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("remote ref not found: %s", e.Ref)
}

func (e *RefNotFoundError) Unwrap() error { return e.Err }

// CheckoutError reports a checkout target that is not resolvable
// locally, usually because the preceding fetch failed or was skipped.
type CheckoutError struct {
	Branch string
	Ref    string
	Err    error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("cannot checkout %s as %s: %v", e.Ref, e.Branch, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// PushStatus is the outcome of CommitPush.
type PushStatus int

const (
	// PushApplied means a new commit was created and pushed.
	PushApplied PushStatus = iota
	// PushNoChange means the working tree held nothing to commit.
	// "Already up to date" is a normal outcome, not an error.
	PushNoChange
	// PushRejected means the remote refused the update, typically a
	// non-fast-forward race with a concurrent writer. Callers decide
	// whether to surface it or retry after a fresh fetch.
	PushRejected
)

func (s PushStatus) String() string {
	switch s {
	case PushApplied:
		return "applied"
	case PushNoChange:
		return "no-change"
	case PushRejected:
		return "rejected"
	}
	return fmt.Sprintf("PushStatus(%d)", int(s))
}

// Fetch retrieves a remote ref into FETCH_HEAD. An absent ref is
// reported as *RefNotFoundError.
func (r *Repository) Fetch(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, "fetch", "origin", ref); err != nil {
		return &RefNotFoundError{Ref: ref, Err: err}
	}
	return nil
}

// RefExists probes the remote for a ref without error control flow.
func (r *Repository) RefExists(ctx context.Context, ref string) (bool, error) {
	res, err := r.run(ctx, "ls-remote", "origin", ref)
	if err != nil {
		return false, fmt.Errorf("probing %s: %w", ref, err)
	}
	return strings.TrimSpace(res.Stdout) != "", nil
}

// Checkout forces branch to point at ref and makes it current.
func (r *Repository) Checkout(ctx context.Context, branch, ref string) error {
	if _, err := r.run(ctx, "checkout", "-B", branch, ref); err != nil {
		return &CheckoutError{Branch: branch, Ref: ref, Err: err}
	}
	return nil
}

// FetchCheckout loads a logical ref as working state: fetch the ref,
// then check out FETCH_HEAD under the given local branch name.
func (r *Repository) FetchCheckout(ctx context.Context, branch, ref string) error {
	if err := r.Fetch(ctx, ref); err != nil {
		return err
	}
	return r.Checkout(ctx, branch, FetchHead)
}

// NewOrphan creates branch with empty history and an empty working
// tree, deleting any previous branch of that name. It destroys all
// tracked and untracked files; callers must not hold paths into the
// working tree across this call.
func (r *Repository) NewOrphan(ctx context.Context, branch string) error {
	// Best effort: the branch may not exist yet.
	_, _ = r.run(ctx, "branch", "-D", branch)
	if _, err := r.run(ctx, "checkout", "--orphan", branch); err != nil {
		return fmt.Errorf("creating orphan %s: %w", branch, err)
	}
	// Unstaging fails when the index is already empty.
	_, _ = r.run(ctx, "rm", "--cached", "-r", "--", ".")
	if _, err := r.run(ctx, "clean", "-d", "-f", "-x"); err != nil {
		return fmt.Errorf("cleaning worktree for %s: %w", branch, err)
	}
	return nil
}

// Add stages the given paths.
func (r *Repository) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	if _, err := r.run(ctx, args...); err != nil {
		return fmt.Errorf("staging %s: %w", strings.Join(paths, " "), err)
	}
	return nil
}

// AddAll stages every change in the working tree, deletions included.
func (r *Repository) AddAll(ctx context.Context) error {
	if _, err := r.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("staging all changes: %w", err)
	}
	return nil
}

// CommitPush commits the staged changes and pushes HEAD to overwrite
// ref. An empty commit is not an error: the returned status reports
// whether anything was applied. A push refused by the remote is
// reported as PushRejected rather than an error, so callers can
// distinguish "already applied" from "lost the race".
func (r *Repository) CommitPush(ctx context.Context, message, ref string) (PushStatus, error) {
	committed := true
	if _, err := r.run(ctx, "commit", "-m", message); err != nil {
		var execErr *ExecError
		if !errors.As(err, &execErr) || !strings.Contains(execErr.output(), "nothing to commit") {
			return PushRejected, fmt.Errorf("committing %q: %w", message, err)
		}
		committed = false
	}

	if _, err := r.run(ctx, "push", "origin", "HEAD:"+ref); err != nil {
		var execErr *ExecError
		if errors.As(err, &execErr) && strings.Contains(execErr.output(), "[rejected]") {
			return PushRejected, nil
		}
		return PushRejected, fmt.Errorf("pushing %s: %w", ref, err)
	}

	if committed {
		return PushApplied, nil
	}
	return PushNoChange, nil
}

// Push pushes an arbitrary refspec to origin.
func (r *Repository) Push(ctx context.Context, refspec string) error {
	if _, err := r.run(ctx, "push", "origin", refspec); err != nil {
		return fmt.Errorf("pushing %s: %w", refspec, err)
	}
	return nil
}

// PushDelete removes a ref from the remote.
func (r *Repository) PushDelete(ctx context.Context, ref string) error {
	if _, err := r.run(ctx, "push", "origin", "--delete", ref); err != nil {
		return fmt.Errorf("deleting %s: %w", ref, err)
	}
	return nil
}

// RemoteRef is one entry of a remote ref listing.
type RemoteRef struct {
	SHA  string
	Name string
}

// LsRemote lists remote refs matching the given patterns.
func (r *Repository) LsRemote(ctx context.Context, patterns ...string) ([]RemoteRef, error) {
	args := append([]string{"ls-remote", "origin"}, patterns...)
	res, err := r.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("listing remote refs: %w", err)
	}
	var refs []RemoteRef
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		refs = append(refs, RemoteRef{SHA: fields[0], Name: fields[1]})
	}
	return refs, nil
}
