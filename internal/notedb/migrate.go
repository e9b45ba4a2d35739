package notedb

import (
	"context"
	"fmt"
	"strings"
)

// rewriteScheme returns a RewriteFunc replacing one identity scheme
// by another, re-hashing the filename at the file's own nesting
// depth. Records already in the target scheme are left untouched,
// which makes the resulting migration idempotent.
func rewriteScheme(from, to string) RewriteFunc {
	return func(rel string, data []byte) (string, []byte, bool, error) {
		ids, err := parseExternalIDs(data)
		if err != nil {
			return "", nil, false, fmt.Errorf("%s: %w", rel, err)
		}
		if len(ids) != 1 || ids[0].Scheme != from {
			return rel, data, false, nil
		}
		id := ids[0]
		id.Scheme = to
		newData, err := id.encode()
		if err != nil {
			return "", nil, false, err
		}
		newRel := EncodePath("", sha1Hex(id.Key()), nestOf(rel))
		return newRel, newData, true, nil
	}
}

// MigrateUsernameScheme rewrites legacy username: identities to the
// gerrit scheme in one batch commit. Running it twice is a no-op.
func (s *Store) MigrateUsernameScheme(ctx context.Context) (int, error) {
	if err := s.loadExternalIDs(ctx); err != nil {
		return 0, err
	}
	n, err := s.MigrateIDs(ctx, "Migrate username external ids to gerrit scheme",
		rewriteScheme(SchemeUsername, SchemeGerrit))
	if err != nil {
		return 0, err
	}
	s.log.Info("migrated username scheme", "rewritten", n)
	return n, nil
}

// CauthToKeycloak rewrites gerrit: identities to the keycloak-oauth
// scheme in one batch commit. username: and mailto: records are left
// alone. Running it twice is a no-op.
func (s *Store) CauthToKeycloak(ctx context.Context) (int, error) {
	if err := s.loadExternalIDs(ctx); err != nil {
		return 0, err
	}
	n, err := s.MigrateIDs(ctx, "Migrate cauth external ids to keycloak",
		rewriteScheme(SchemeGerrit, SchemeKeycloak))
	if err != nil {
		return 0, err
	}
	s.log.Info("migrated cauth ids to keycloak", "rewritten", n)
	return n, nil
}

// MigrateGroupShards re-homes group refs written under the legacy
// first-two-characters shard onto the canonical last-two-characters
// form, one ref at a time: push the old tip to the canonical name,
// then delete the legacy ref. Refs already canonical are skipped, so
// the migration is idempotent. New group refs are only ever created
// under the canonical form; the inverted form stays readable for
// repositories this migration has not visited.
func (s *Store) MigrateGroupShards(ctx context.Context) (int, error) {
	refs, err := s.repo.LsRemote(ctx, "refs/groups/*")
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, ref := range refs {
		canonical, err := canonicalGroupRef(ref.Name)
		if err != nil {
			s.log.Warn("skipping unrecognized group ref", "ref", ref.Name)
			continue
		}
		if canonical == ref.Name {
			continue
		}
		if err := s.repo.Fetch(ctx, ref.Name); err != nil {
			return moved, err
		}
		if err := s.repo.Push(ctx, "FETCH_HEAD:"+canonical); err != nil {
			return moved, err
		}
		if err := s.repo.PushDelete(ctx, ref.Name); err != nil {
			return moved, err
		}
		s.log.Info("re-sharded group ref", "from", ref.Name, "to", canonical)
		moved++
	}
	return moved, nil
}

// canonicalGroupRef recomputes the canonical form of a sharded group
// ref from its uuid segment.
func canonicalGroupRef(ref string) (string, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 4 {
		return "", fmt.Errorf("not a sharded ref: %s", ref)
	}
	return GroupRef(parts[3])
}
