package notedb

import (
	"context"
	"os"
	"strings"
)

// Group is one record of the group-names store.
type Group struct {
	Name string
	UUID string
	// rel is the file holding the record, relative to the store root.
	rel string
}

// lookupGroupID resolves a group name through the legacy "groups"
// file of refs/meta/config: whitespace-split lines, uuid in the first
// column, name in the last. Returns "" when the name does not resolve
// to exactly one group.
func (s *Store) lookupGroupID(ctx context.Context, name string) (string, error) {
	if err := s.repo.FetchCheckout(ctx, branchMetaConfig, MetaConfig); err != nil {
		return "", err
	}
	data, err := s.repo.ReadFile("groups")
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	var ids []string
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[len(fields)-1] == name {
			ids = append(ids, fields[0])
		}
	}
	if len(ids) != 1 {
		return "", nil
	}
	return ids[0], nil
}

// parseGroupFile reads the name and uuid keys out of a group-names
// record: key=value lines, whitespace tolerant, '=' allowed in values
// after the first.
func parseGroupFile(data []byte) Group {
	var g Group
	for _, line := range strings.Split(string(data), "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "name":
			g.Name = value
		case "uuid":
			g.UUID = value
		}
	}
	return g
}

// findGroupByName loads the group-names ref and scans its files for a
// record with the given name. Group names are the human-facing lookup
// key and not unique across time; the first match wins.
func (s *Store) findGroupByName(ctx context.Context, name string) (Group, error) {
	if err := s.repo.FetchCheckout(ctx, branchGroupNames, MetaGroupNames); err != nil {
		return Group{}, err
	}
	files, err := s.repo.WalkFiles()
	if err != nil {
		return Group{}, err
	}
	for _, rel := range files {
		data, err := s.repo.ReadFile(rel)
		if err != nil {
			return Group{}, err
		}
		g := parseGroupFile(data)
		if g.Name == name && g.UUID != "" {
			g.rel = rel
			return g, nil
		}
	}
	return Group{}, &GroupNotFoundError{Name: name}
}
