// Package notedb manipulates the refs and files Gerrit uses to store
// its account database inside the All-Users project.
//
// Accounts and groups live under two-level fan-out refs
// (refs/users/<shard>/<id>, refs/groups/<shard>/<uuid>) where the
// shard is the last two characters of the id. External identities
// live as content-addressed files under refs/meta/external-ids. Every
// mutation goes through a fetch, checkout, mutate, commit, push cycle
// against one logical ref at a time.
package notedb

import (
	"fmt"
	"strings"
)

// Well-known logical refs of the All-Users project.
const (
	MetaConfig      = "refs/meta/config"
	MetaExternalIDs = "refs/meta/external-ids"
	MetaGroupNames  = "refs/meta/group-names"
)

// External identity schemes.
const (
	SchemeGerrit   = "gerrit"
	SchemeUsername = "username"
	SchemeMailto   = "mailto"
	SchemeKeycloak = "keycloak-oauth"
)

// ShardID returns the fan-out prefix for an id: its last two
// characters, left-padded with "0" for single-character ids.
func ShardID(id string) (string, error) {
	switch {
	case id == "":
		return "", &InvalidIDError{ID: id}
	case len(id) == 1:
		return "0" + id, nil
	default:
		return id[len(id)-2:], nil
	}
}

func makeRef(kind, id string) (string, error) {
	shard, err := ShardID(id)
	if err != nil {
		return "", err
	}
	return "refs/" + kind + "/" + shard + "/" + id, nil
}

// UserRef returns the account ref for a numeric account id, e.g.
// refs/users/01/1.
func UserRef(id string) (string, error) {
	return makeRef("users", id)
}

// GroupRef returns the group ref for a group uuid.
func GroupRef(uuid string) (string, error) {
	return makeRef("groups", uuid)
}

// InvertRef recomputes the shard of a 4-segment ref from the first
// two characters of the id instead of the last two. Some historical
// group refs were sharded by the wrong slice; callers use the
// inverted form as a fallback lookup, never as ground truth. When the
// shard already equals the first two characters the ref is returned
// unchanged.
func InvertRef(ref string) (string, error) {
	parts := strings.Split(ref, "/")
	if len(parts) != 4 {
		return "", fmt.Errorf("not a sharded ref: %s", ref)
	}
	id := parts[3]
	shard := id
	if len(id) > 2 {
		shard = id[:2]
	}
	return strings.Join([]string{parts[0], parts[1], shard, id}, "/"), nil
}
