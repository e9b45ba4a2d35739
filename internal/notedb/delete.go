package notedb

import (
	"context"
	"os"
)

// DeleteUser removes every external identity belonging to the user in
// one commit, then deletes the user's account ref. Identity removal
// runs unconditionally (an empty match is a no-op commit), so a
// repeated delete fails at the ref scan with *UserNotFoundError, not
// earlier.
func (s *Store) DeleteUser(ctx context.Context, name, email string) error {
	if err := s.loadExternalIDs(ctx); err != nil {
		return err
	}
	candidates := []ExternalID{
		{Scheme: SchemeGerrit, Name: name},
		{Scheme: SchemeUsername, Name: name},
		{Scheme: SchemeKeycloak, Name: name},
	}
	if email != "" {
		candidates = append(candidates, ExternalID{Scheme: SchemeMailto, Name: email})
	}
	headers := make([]string, 0, len(candidates))
	for _, c := range candidates {
		headers = append(headers, c.headerLine())
	}

	matched, err := s.FindIDsMatching(headers)
	if err != nil {
		return err
	}
	for _, rel := range matched {
		if err := s.repo.RemoveFile(rel); err != nil {
			return err
		}
	}
	if err := s.repo.AddAll(ctx); err != nil {
		return err
	}
	if _, err := s.commitPush(ctx, "Delete external ids of user "+name, MetaExternalIDs); err != nil {
		return err
	}
	s.log.Info("removed external ids", "user", name, "count", len(matched))

	return s.deleteUserRef(ctx, name)
}

// deleteUserRef scans every account ref for a fullName match and
// deletes the matching ref. The ref suffix (numeric account id) is
// the stable identifier, but deletion is keyed by the human name, so
// a full scan is required.
func (s *Store) deleteUserRef(ctx context.Context, name string) error {
	refs, err := s.repo.LsRemote(ctx, "refs/users/*")
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := s.repo.FetchCheckout(ctx, branchUserScan, ref.Name); err != nil {
			return err
		}
		data, err := s.repo.ReadFile("account.config")
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		fullName, err := parseAccountConfig(data)
		if err != nil {
			return err
		}
		if fullName != name {
			continue
		}
		if err := s.repo.PushDelete(ctx, ref.Name); err != nil {
			return err
		}
		s.log.Info("deleted user ref", "user", name, "ref", ref.Name)
		return nil
	}
	return &UserNotFoundError{Name: name}
}

// DeleteGroup resolves a group through the group-names ref, deletes
// its remote ref (whichever shard form it was written under) and
// removes its record from group-names in one commit. A second call
// fails with *GroupNotFoundError: the record is already gone.
func (s *Store) DeleteGroup(ctx context.Context, name string) error {
	group, err := s.findGroupByName(ctx, name)
	if err != nil {
		return err
	}

	groupRef, err := GroupRef(group.UUID)
	if err != nil {
		return err
	}
	inverted, err := InvertRef(groupRef)
	if err != nil {
		return err
	}
	// Historical repositories hold the ref under either shard form.
	for _, ref := range dedupe(groupRef, inverted) {
		exists, err := s.repo.RefExists(ctx, ref)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := s.repo.PushDelete(ctx, ref); err != nil {
			return err
		}
		s.log.Info("deleted group ref", "group", name, "ref", ref)
	}

	if err := s.repo.RemoveFile(group.rel); err != nil {
		return err
	}
	if err := s.repo.AddAll(ctx); err != nil {
		return err
	}
	_, err = s.commitPush(ctx, "Delete group "+name, MetaGroupNames)
	return err
}

func dedupe(refs ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range refs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
