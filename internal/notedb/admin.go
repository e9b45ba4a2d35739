package notedb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/softwarefactory-project/gonotedb/internal/git"
)

// AdminAccountID is the account id Gerrit reserves for the first
// administrator.
const AdminAccountID = "1"

// adminGroupName is the built-in group the admin account joins.
const adminGroupName = "Administrators"

// encodeAccountConfig serializes an account.config file.
func encodeAccountConfig(fullName, preferredEmail string) ([]byte, error) {
	cfg := gitconfig.New()
	sec := cfg.Section("account")
	sec.SetOption("fullName", fullName)
	if preferredEmail != "" {
		sec.SetOption("preferredEmail", preferredEmail)
	}
	var buf bytes.Buffer
	if err := gitconfig.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding account.config: %w", err)
	}
	return buf.Bytes(), nil
}

// parseAccountConfig returns the fullName of an account.config file.
func parseAccountConfig(data []byte) (string, error) {
	cfg := gitconfig.New()
	if err := gitconfig.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return "", fmt.Errorf("decoding account.config: %w", err)
	}
	return cfg.Section("account").Option("fullName"), nil
}

// CreateAdminUser bootstraps the initial administrator account:
// membership in the Administrators group, external identities for the
// requested auth scheme plus mailto, and the account ref itself.
//
// The operation is idempotent: the user ref is pushed last, so its
// existence on the remote means a previous run completed and the
// whole call is a no-op.
func (s *Store) CreateAdminUser(ctx context.Context, email, pubkey, authScheme string) error {
	adminRef, err := UserRef(AdminAccountID)
	if err != nil {
		return err
	}
	exists, err := s.repo.RefExists(ctx, adminRef)
	if err != nil {
		return err
	}
	if exists {
		s.log.Info("admin user already exists", "ref", adminRef)
		return nil
	}

	if err := s.addAdminToGroup(ctx); err != nil {
		return err
	}
	if err := s.writeAdminIDs(ctx, email, authScheme); err != nil {
		return err
	}
	return s.pushAdminAccount(ctx, adminRef, email, pubkey)
}

// addAdminToGroup appends account 1 to the members file of the
// Administrators group ref, trying the canonical shard first and the
// historical inverted shard as fallback.
func (s *Store) addAdminToGroup(ctx context.Context) error {
	groupID, err := s.lookupGroupID(ctx, adminGroupName)
	if err != nil {
		return err
	}
	if groupID == "" {
		return &GroupNotFoundError{Name: adminGroupName}
	}
	groupRef, err := GroupRef(groupID)
	if err != nil {
		return err
	}
	if err := s.repo.FetchCheckout(ctx, branchGroupAdmin, groupRef); err != nil {
		var notFound *git.RefNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		// Some groups were historically sharded by the first two
		// characters of the uuid.
		inverted, invErr := InvertRef(groupRef)
		if invErr != nil {
			return invErr
		}
		if err := s.repo.FetchCheckout(ctx, branchGroupAdmin, inverted); err != nil {
			return err
		}
		groupRef = inverted
	}

	var members []string
	if data, err := s.repo.ReadFile("members"); err == nil {
		members = strings.Split(string(data), "\n")
	} else if !os.IsNotExist(err) {
		return err
	}
	found := false
	for _, m := range members {
		if strings.TrimSpace(m) == AdminAccountID {
			found = true
			break
		}
	}
	if !found {
		members = append(members, AdminAccountID)
		out := strings.Join(members, "\n")
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		if err := s.repo.WriteFile("members", []byte(out)); err != nil {
			return err
		}
	}
	if err := s.repo.Add(ctx, "members"); err != nil {
		return err
	}
	_, err = s.commitPush(ctx, "Add admin user to Administrators group", groupRef)
	return err
}

// writeAdminIDs creates the admin external identities: the requested
// auth scheme (plus the username anchor) and the mailto record, all
// at the store's nesting depth.
func (s *Store) writeAdminIDs(ctx context.Context, email, authScheme string) error {
	if err := s.ensureExternalIDs(ctx); err != nil {
		return err
	}
	scheme := SchemeGerrit
	if authScheme == SchemeKeycloak || authScheme == "keycloak" {
		scheme = SchemeKeycloak
	}
	if err := s.WriteID(ExternalID{Scheme: scheme, Name: "admin", AccountID: AdminAccountID}); err != nil {
		return err
	}
	nest, err := s.depthFor("admin", AdminAccountID)
	if err != nil {
		return err
	}
	mail := ExternalID{Scheme: SchemeMailto, Name: email, AccountID: AdminAccountID, Email: email}
	if _, err := s.writeIDAt(mail, nest); err != nil {
		return err
	}
	if err := s.repo.AddAll(ctx); err != nil {
		return err
	}
	_, err = s.commitPush(ctx, "Add admin external id", MetaExternalIDs)
	return err
}

// pushAdminAccount creates the admin account ref from a fresh orphan
// branch holding account.config and the bootstrap authorized_keys.
func (s *Store) pushAdminAccount(ctx context.Context, adminRef, email, pubkey string) error {
	if err := s.repo.NewOrphan(ctx, branchUserAdmin); err != nil {
		return err
	}
	account, err := encodeAccountConfig("Administrator", email)
	if err != nil {
		return err
	}
	if err := s.repo.WriteFile("account.config", account); err != nil {
		return err
	}
	if err := s.repo.WriteFile("authorized_keys", []byte(pubkey+"\n")); err != nil {
		return err
	}
	if err := s.repo.Add(ctx, "account.config", "authorized_keys"); err != nil {
		return err
	}
	_, err = s.commitPush(ctx, "Initialize admin user", adminRef)
	if err == nil {
		s.log.Info("admin user created", "ref", adminRef, "email", email)
	}
	return err
}

// AddAccountExternalID binds a username to an account id under both
// the gerrit and username schemes.
func (s *Store) AddAccountExternalID(ctx context.Context, username, accountID string) error {
	if err := s.loadExternalIDs(ctx); err != nil {
		return err
	}
	if err := s.WriteID(ExternalID{Scheme: SchemeGerrit, Name: username, AccountID: accountID}); err != nil {
		return err
	}
	if err := s.repo.AddAll(ctx); err != nil {
		return err
	}
	_, err := s.commitPush(ctx, "Add externalId for user "+username, MetaExternalIDs)
	return err
}
