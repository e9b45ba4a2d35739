package notedb

import (
	"context"
	"errors"
	"fmt"

	"github.com/softwarefactory-project/gonotedb/internal/git"
)

// Local branch names used to stage changes before pushing back to the
// logical refs. Ephemeral; forcibly reset before every mutation.
const (
	branchMetaConfig  = "meta_config"
	branchExternalIDs = "external_ids"
	branchGroupNames  = "group_names"
	branchGroupAdmin  = "group_admin"
	branchUserAdmin   = "user_admin"
	branchUserScan    = "user_scan"
	branchGroupScan   = "group_scan"
)

// Store performs the NoteDb domain operations against one All-Users
// working copy. Operations are synchronous and must not share a Store
// (or its Repository) across goroutines: the working tree is a single
// mutable resource.
type Store struct {
	repo *git.Repository
	log  Logger

	// nesting depth per logical account name, learned on first write
	// so later schemes skip the filesystem probe.
	nest map[string]int
}

// NewStore creates a Store for an opened All-Users repository.
func NewStore(repo *git.Repository, log Logger) *Store {
	if log == nil {
		log = NewNopLogger()
	}
	return &Store{repo: repo, log: log, nest: make(map[string]int)}
}

// Repo exposes the underlying repository handle.
func (s *Store) Repo() *git.Repository { return s.repo }

// commitPush pushes staged changes and surfaces a rejected push as an
// error: a concurrent writer won the race and the caller's view is
// stale. "Nothing to commit" stays a normal outcome.
func (s *Store) commitPush(ctx context.Context, message, ref string) (git.PushStatus, error) {
	status, err := s.repo.CommitPush(ctx, message, ref)
	if err != nil {
		return status, err
	}
	if status == git.PushRejected {
		return status, fmt.Errorf("push of %s rejected by remote (concurrent update?)", ref)
	}
	s.log.Debug("pushed", "ref", ref, "status", status.String())
	return status, nil
}

// loadExternalIDs brings the working tree to the external-ids ref.
func (s *Store) loadExternalIDs(ctx context.Context) error {
	return s.repo.FetchCheckout(ctx, branchExternalIDs, MetaExternalIDs)
}

// ensureExternalIDs loads the external-ids ref, bootstrapping an
// orphan branch when the store has never been created.
func (s *Store) ensureExternalIDs(ctx context.Context) error {
	err := s.loadExternalIDs(ctx)
	if err == nil {
		return nil
	}
	var notFound *git.RefNotFoundError
	if !errors.As(err, &notFound) {
		return err
	}
	s.log.Info("bootstrapping external-ids store", "ref", MetaExternalIDs)
	return s.repo.NewOrphan(ctx, branchExternalIDs)
}
