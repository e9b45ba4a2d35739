package notedb

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
)

// externalIDSection is the git-config section holding one identity
// record, subsectioned by "<scheme>:<name>".
const externalIDSection = "externalId"

// ExternalID is one external identity record: a scheme-qualified name
// bound to an internal account id.
type ExternalID struct {
	Scheme    string
	Name      string
	AccountID string
	Email     string
}

// Key returns the content-address key of the record.
func (id ExternalID) Key() string {
	return id.Scheme + ":" + id.Name
}

// headerLine returns the first line of the record's file, used for
// exact-match content scans.
func (id ExternalID) headerLine() string {
	return fmt.Sprintf("[externalId %q]", id.Key())
}

// encode serializes the record in Gerrit's on-disk git-config layout:
//
//	[externalId "<scheme>:<name>"]
//		accountId = <id>
//		email = <email>
func (id ExternalID) encode() ([]byte, error) {
	cfg := gitconfig.New()
	sub := cfg.Section(externalIDSection).Subsection(id.Key())
	sub.SetOption("accountId", id.AccountID)
	if id.Email != "" {
		sub.SetOption("email", id.Email)
	}
	var buf bytes.Buffer
	if err := gitconfig.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding external id %s: %w", id.Key(), err)
	}
	return buf.Bytes(), nil
}

// parseExternalIDs decodes every identity record held in one file.
// Files written by Gerrit hold exactly one, but the parser does not
// rely on that.
func parseExternalIDs(data []byte) ([]ExternalID, error) {
	cfg := gitconfig.New()
	if err := gitconfig.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding external id file: %w", err)
	}
	var ids []ExternalID
	for _, sub := range cfg.Section(externalIDSection).Subsections {
		scheme, name, ok := strings.Cut(sub.Name, ":")
		if !ok {
			continue
		}
		ids = append(ids, ExternalID{
			Scheme:    scheme,
			Name:      name,
			AccountID: sub.Option("accountId"),
			Email:     sub.Option("email"),
		})
	}
	return ids, nil
}

// writeIDAt writes one record at an explicit nesting depth and
// returns its path relative to the store root.
func (s *Store) writeIDAt(id ExternalID, nest int) (string, error) {
	data, err := id.encode()
	if err != nil {
		return "", err
	}
	rel := EncodePath("", sha1Hex(id.Key()), nest)
	if err := s.repo.WriteFile(rel, data); err != nil {
		return "", err
	}
	return rel, nil
}

// depthFor returns the store's nesting depth for records of the given
// logical account name. The depth is anchored by the username: record:
// discovered by probing when it exists, established at depth 1 (and
// the record created) when it does not. All schemes of one account
// share that depth so listings stay coherent across generations.
func (s *Store) depthFor(name, accountID string) (int, error) {
	if nest, ok := s.nest[name]; ok {
		return nest, nil
	}
	anchor := ExternalID{Scheme: SchemeUsername, Name: name, AccountID: accountID}
	nest := DecodePath(s.repo.Dir, sha1Hex(anchor.Key()))
	if nest == NestNotFound {
		nest = 1
		if _, err := s.writeIDAt(anchor, nest); err != nil {
			return 0, err
		}
	}
	s.nest[name] = nest
	return nest, nil
}

// WriteID writes the identity record for one scheme of an account,
// ensuring the username: record exists first and reusing its depth.
// The working tree must already be at the external-ids ref.
func (s *Store) WriteID(id ExternalID) error {
	nest, err := s.depthFor(id.Name, id.AccountID)
	if err != nil {
		return err
	}
	if id.Scheme == SchemeUsername {
		// The depth anchor is the username record itself.
		return nil
	}
	_, err = s.writeIDAt(id, nest)
	return err
}

// ListIDs returns the relative path of every identity file in the
// checked-out store.
func (s *Store) ListIDs() ([]string, error) {
	return s.repo.WalkFiles()
}

// FindIDsMatching scans every identity file for an exact line match
// against any of the candidate headers and returns the union, sorted.
func (s *Store) FindIDsMatching(headers []string) ([]string, error) {
	files, err := s.ListIDs()
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, rel := range files {
		data, err := s.repo.ReadFile(rel)
		if err != nil {
			return nil, err
		}
		if containsLine(data, headers) {
			matched = append(matched, rel)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

func containsLine(data []byte, headers []string) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		for _, h := range headers {
			if line == h {
				return true
			}
		}
	}
	return false
}

// RewriteFunc transforms one identity file. It returns the new
// relative path and content, and whether anything changed. A rewrite
// that moves a record re-hashes its filename.
type RewriteFunc func(rel string, data []byte) (string, []byte, bool, error)

// MigrateIDs applies rewrite to every identity file and, when at
// least one file changed, stages every add and delete and pushes one
// commit for the whole batch. Migrations are one coarse-grained
// transaction: a crash mid-rewrite leaves the working tree dirty but
// the remote untouched.
func (s *Store) MigrateIDs(ctx context.Context, message string, rewrite RewriteFunc) (int, error) {
	files, err := s.ListIDs()
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, rel := range files {
		data, err := s.repo.ReadFile(rel)
		if err != nil {
			return 0, err
		}
		newRel, newData, ok, err := rewrite(rel, data)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		if newRel != rel {
			if err := s.repo.RemoveFile(rel); err != nil {
				return 0, err
			}
		}
		if err := s.repo.WriteFile(newRel, newData); err != nil {
			return 0, err
		}
		changed++
	}
	if changed == 0 {
		s.log.Debug("migration is a no-op", "message", message)
		return 0, nil
	}
	if err := s.repo.AddAll(ctx); err != nil {
		return 0, err
	}
	if _, err := s.commitPush(ctx, message, MetaExternalIDs); err != nil {
		return 0, err
	}
	return changed, nil
}
