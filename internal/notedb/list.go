package notedb

import (
	"context"
	"sort"
	"strconv"
)

// UserRecord is the per-account summary produced by ListUsers.
type UserRecord struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// ListUsers folds every external identity into one record per account
// id. The username comes from the username, gerrit or keycloak-oauth
// record (in that order of preference), the email from mailto.
// Read-only: nothing is committed or pushed.
func (s *Store) ListUsers(ctx context.Context) ([]UserRecord, error) {
	if err := s.loadExternalIDs(ctx); err != nil {
		return nil, err
	}
	files, err := s.ListIDs()
	if err != nil {
		return nil, err
	}

	users := make(map[string]*UserRecord)
	// scheme providing the current Username, to apply preference order
	usernameScheme := make(map[string]string)
	for _, rel := range files {
		data, err := s.repo.ReadFile(rel)
		if err != nil {
			return nil, err
		}
		ids, err := parseExternalIDs(data)
		if err != nil {
			s.log.Warn("skipping unparsable identity file", "file", rel, "err", err)
			continue
		}
		for _, id := range ids {
			if id.AccountID == "" {
				continue
			}
			rec := users[id.AccountID]
			if rec == nil {
				rec = &UserRecord{ID: id.AccountID}
				users[id.AccountID] = rec
			}
			switch id.Scheme {
			case SchemeMailto:
				rec.Email = id.Name
			case SchemeUsername, SchemeGerrit, SchemeKeycloak:
				if betterUsernameScheme(usernameScheme[id.AccountID], id.Scheme) {
					rec.Username = id.Name
					usernameScheme[id.AccountID] = id.Scheme
				}
			}
			if rec.Email == "" && id.Email != "" {
				rec.Email = id.Email
			}
		}
	}

	out := make([]UserRecord, 0, len(users))
	for _, rec := range users {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		a, aerr := strconv.Atoi(out[i].ID)
		b, berr := strconv.Atoi(out[j].ID)
		if aerr == nil && berr == nil {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// betterUsernameScheme reports whether next outranks current as the
// source of a user's username.
func betterUsernameScheme(current, next string) bool {
	rank := func(s string) int {
		switch s {
		case SchemeUsername:
			return 3
		case SchemeGerrit:
			return 2
		case SchemeKeycloak:
			return 1
		}
		return 0
	}
	return rank(next) > rank(current)
}
