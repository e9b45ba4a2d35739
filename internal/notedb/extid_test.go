package notedb

import (
	"testing"
)

func TestExternalID_Encode(t *testing.T) {
	t.Run("without email", func(t *testing.T) {
		id := ExternalID{Scheme: SchemeGerrit, Name: "admin", AccountID: "1"}
		data, err := id.encode()
		if err != nil {
			t.Fatalf("encode() error = %v", err)
		}
		want := "[externalId \"gerrit:admin\"]\n\taccountId = 1\n"
		if string(data) != want {
			t.Errorf("encode() = %q, want %q", data, want)
		}
	})

	t.Run("with email", func(t *testing.T) {
		id := ExternalID{Scheme: SchemeMailto, Name: "admin@localhost", AccountID: "1", Email: "admin@localhost"}
		data, err := id.encode()
		if err != nil {
			t.Fatalf("encode() error = %v", err)
		}
		want := "[externalId \"mailto:admin@localhost\"]\n\taccountId = 1\n\temail = admin@localhost\n"
		if string(data) != want {
			t.Errorf("encode() = %q, want %q", data, want)
		}
	})
}

func TestParseExternalIDs(t *testing.T) {
	data := []byte("[externalId \"mailto:a@x.com\"]\n\taccountId = 7\n\temail = a@x.com\n")
	ids, err := parseExternalIDs(data)
	if err != nil {
		t.Fatalf("parseExternalIDs() error = %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("got %d ids, want 1", len(ids))
	}
	id := ids[0]
	if id.Scheme != SchemeMailto || id.Name != "a@x.com" || id.AccountID != "7" || id.Email != "a@x.com" {
		t.Errorf("parsed id = %+v", id)
	}
}

func TestParseExternalIDs_RoundTrip(t *testing.T) {
	orig := ExternalID{Scheme: SchemeUsername, Name: "alice", AccountID: "42"}
	data, err := orig.encode()
	if err != nil {
		t.Fatalf("encode() error = %v", err)
	}
	ids, err := parseExternalIDs(data)
	if err != nil {
		t.Fatalf("parseExternalIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != orig {
		t.Errorf("round trip = %+v, want %+v", ids, orig)
	}
}

func TestHeaderLine(t *testing.T) {
	id := ExternalID{Scheme: SchemeGerrit, Name: "alice"}
	if got, want := id.headerLine(), `[externalId "gerrit:alice"]`; got != want {
		t.Errorf("headerLine() = %q, want %q", got, want)
	}
}

func TestContainsLine(t *testing.T) {
	data := []byte("[externalId \"gerrit:alice\"]\n\taccountId = 42\n")
	if !containsLine(data, []string{`[externalId "gerrit:alice"]`}) {
		t.Error("exact header should match")
	}
	if containsLine(data, []string{`[externalId "gerrit:alic"]`}) {
		t.Error("partial header must not match")
	}
	if containsLine(data, []string{`accountId = 42`}) {
		t.Error("indented line must not match an unindented candidate")
	}
}

func TestRewriteScheme(t *testing.T) {
	rewrite := rewriteScheme(SchemeUsername, SchemeGerrit)

	t.Run("rewrites matching scheme and re-hashes path", func(t *testing.T) {
		orig := ExternalID{Scheme: SchemeUsername, Name: "alice", AccountID: "42"}
		data, _ := orig.encode()
		rel := EncodePath("", sha1Hex(orig.Key()), 1)

		newRel, newData, changed, err := rewrite(rel, data)
		if err != nil {
			t.Fatalf("rewrite error = %v", err)
		}
		if !changed {
			t.Fatal("expected a rewrite")
		}
		wantRel := EncodePath("", sha1Hex("gerrit:alice"), 1)
		if newRel != wantRel {
			t.Errorf("new path = %q, want %q", newRel, wantRel)
		}
		ids, err := parseExternalIDs(newData)
		if err != nil {
			t.Fatalf("parsing rewritten file: %v", err)
		}
		if len(ids) != 1 || ids[0].Scheme != SchemeGerrit || ids[0].AccountID != "42" {
			t.Errorf("rewritten ids = %+v", ids)
		}
	})

	t.Run("keeps nesting depth of the original file", func(t *testing.T) {
		orig := ExternalID{Scheme: SchemeUsername, Name: "bob", AccountID: "7"}
		data, _ := orig.encode()
		rel := EncodePath("", sha1Hex(orig.Key()), 0)

		newRel, _, changed, err := rewrite(rel, data)
		if err != nil || !changed {
			t.Fatalf("rewrite = (%v, changed=%v)", err, changed)
		}
		if got := nestOf(newRel); got != 0 {
			t.Errorf("rewritten nest = %d, want 0", got)
		}
	})

	t.Run("other schemes untouched", func(t *testing.T) {
		orig := ExternalID{Scheme: SchemeMailto, Name: "a@x.com", AccountID: "7"}
		data, _ := orig.encode()
		rel := EncodePath("", sha1Hex(orig.Key()), 1)

		newRel, newData, changed, err := rewrite(rel, data)
		if err != nil {
			t.Fatalf("rewrite error = %v", err)
		}
		if changed || newRel != rel || string(newData) != string(data) {
			t.Errorf("mailto record should be untouched, got changed=%v rel=%q", changed, newRel)
		}
	})

	t.Run("idempotent on already-migrated records", func(t *testing.T) {
		orig := ExternalID{Scheme: SchemeGerrit, Name: "alice", AccountID: "42"}
		data, _ := orig.encode()
		rel := EncodePath("", sha1Hex(orig.Key()), 1)

		_, _, changed, err := rewrite(rel, data)
		if err != nil {
			t.Fatalf("rewrite error = %v", err)
		}
		if changed {
			t.Error("gerrit record must not be rewritten again")
		}
	})
}

func TestParseGroupFile(t *testing.T) {
	g := parseGroupFile([]byte("name = My Group\nuuid = abc123\n"))
	if g.Name != "My Group" || g.UUID != "abc123" {
		t.Errorf("parseGroupFile = %+v", g)
	}

	// '=' allowed in values after the first.
	g = parseGroupFile([]byte("name = a=b\nuuid=xyz\n"))
	if g.Name != "a=b" || g.UUID != "xyz" {
		t.Errorf("parseGroupFile with '=' in value = %+v", g)
	}
}

func TestParseAccountConfig(t *testing.T) {
	data, err := encodeAccountConfig("Administrator", "admin@localhost")
	if err != nil {
		t.Fatalf("encodeAccountConfig error = %v", err)
	}
	want := "[account]\n\tfullName = Administrator\n\tpreferredEmail = admin@localhost\n"
	if string(data) != want {
		t.Errorf("encodeAccountConfig = %q, want %q", data, want)
	}
	fullName, err := parseAccountConfig(data)
	if err != nil {
		t.Fatalf("parseAccountConfig error = %v", err)
	}
	if fullName != "Administrator" {
		t.Errorf("fullName = %q", fullName)
	}
}
