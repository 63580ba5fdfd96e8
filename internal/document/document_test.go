package document_test

import (
	"testing"
	"time"

	"github.com/rlabuda/cfgvault/internal/document"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name        string
		value       any
		wantAccount string
		wantOK      bool
	}{
		{name: "reference", value: "SEC:cf.token", wantAccount: "cf.token", wantOK: true},
		{name: "reference with array segment", value: "SEC:cf.tunnels[0].token", wantAccount: "cf.tunnels[0].token", wantOK: true},
		{name: "plain string", value: "abc123", wantOK: false},
		{name: "prefix mid-string", value: "xSEC:cf.token", wantOK: false},
		{name: "non-string", value: 42.0, wantOK: false},
		{name: "nil", value: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, ok := document.ParseReference(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("ParseReference(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if ok && ref.Account != tt.wantAccount {
				t.Errorf("account = %q, want %q", ref.Account, tt.wantAccount)
			}
		})
	}
}

func TestReferenceString(t *testing.T) {
	ref := document.NewReference("supabase.projects[2].api_key")
	if got, want := ref.String(), "SEC:supabase.projects[2].api_key"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestPaths(t *testing.T) {
	if got := document.ChildPath("", "token"); got != "token" {
		t.Errorf("ChildPath at root = %q, want %q", got, "token")
	}
	if got := document.ChildPath("providers.openrouter", "token"); got != "providers.openrouter.token" {
		t.Errorf("ChildPath = %q, want %q", got, "providers.openrouter.token")
	}
	if got := document.IndexPath("tunnels", 3); got != "tunnels[3]" {
		t.Errorf("IndexPath = %q, want %q", got, "tunnels[3]")
	}
}

func TestMetaKeys(t *testing.T) {
	if got := document.MetaKey("token"); got != "token_meta" {
		t.Errorf("MetaKey = %q, want %q", got, "token_meta")
	}

	base, ok := document.MetaBase("token_meta")
	if !ok || base != "token" {
		t.Errorf("MetaBase(token_meta) = %q, %v", base, ok)
	}
	if _, ok := document.MetaBase("token"); ok {
		t.Error("MetaBase(token) reported a sidecar key")
	}
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"name": "cf",
		"providers": map[string]any{
			"openrouter": map[string]any{"token": "abc"},
		},
		"tags": []any{"a", "b"},
	}

	tests := []struct {
		name    string
		keyPath string
		want    any
		wantOK  bool
	}{
		{name: "top level", keyPath: "name", want: "cf", wantOK: true},
		{name: "nested", keyPath: "providers.openrouter.token", want: "abc", wantOK: true},
		{name: "missing leaf", keyPath: "providers.openrouter.missing", wantOK: false},
		{name: "missing container", keyPath: "nothing.here", wantOK: false},
		{name: "through non-object", keyPath: "name.deeper", wantOK: false},
		{name: "through array", keyPath: "tags.0", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := document.Lookup(doc, tt.keyPath)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.keyPath, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("Lookup(%q) = %v, want %v", tt.keyPath, got, tt.want)
			}
		})
	}
}

func TestSet(t *testing.T) {
	doc := map[string]any{"existing": map[string]any{"a": "1"}}

	if !document.Set(doc, "existing.b", "2") {
		t.Fatal("Set into existing object failed")
	}
	if !document.Set(doc, "fresh.nested.token", "abc") {
		t.Fatal("Set creating intermediates failed")
	}
	if document.Set(doc, "existing.a.deeper", "x") {
		t.Error("Set through a string value should fail")
	}

	if got, _ := document.Lookup(doc, "existing.b"); got != "2" {
		t.Errorf("existing.b = %v", got)
	}
	if got, _ := document.Lookup(doc, "fresh.nested.token"); got != "abc" {
		t.Errorf("fresh.nested.token = %v", got)
	}
}

func TestMetadata(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)
	stamp := now.Format(time.RFC3339)

	t.Run("fresh sidecar", func(t *testing.T) {
		meta := document.Metadata(nil, now)
		if meta["created_at"] != stamp || meta["last_used_at"] != stamp {
			t.Errorf("fresh sidecar = %v", meta)
		}
	})

	t.Run("created_at preserved", func(t *testing.T) {
		prior := map[string]any{"created_at": "2026-01-01T00:00:00Z", "last_used_at": "2026-01-02T00:00:00Z"}
		meta := document.Metadata(prior, now)
		if meta["created_at"] != "2026-01-01T00:00:00Z" {
			t.Errorf("created_at = %v, want preserved", meta["created_at"])
		}
		if meta["last_used_at"] != stamp {
			t.Errorf("last_used_at = %v, want %v", meta["last_used_at"], stamp)
		}
	})

	t.Run("malformed prior sidecar", func(t *testing.T) {
		meta := document.Metadata("not a map", now)
		if meta["created_at"] != stamp {
			t.Errorf("created_at = %v, want %v", meta["created_at"], stamp)
		}
	})
}

func TestCreatedAt(t *testing.T) {
	tests := []struct {
		name   string
		meta   any
		wantOK bool
	}{
		{name: "rfc3339", meta: map[string]any{"created_at": "2026-08-01T12:00:00+02:00"}, wantOK: true},
		{name: "legacy local stamp", meta: map[string]any{"created_at": "2026-08-01T12:00:00.123456"}, wantOK: true},
		{name: "missing field", meta: map[string]any{"last_used_at": "2026-08-01T12:00:00Z"}, wantOK: false},
		{name: "empty string", meta: map[string]any{"created_at": ""}, wantOK: false},
		{name: "garbage", meta: map[string]any{"created_at": "yesterday"}, wantOK: false},
		{name: "not a map", meta: "2026-08-01T12:00:00Z", wantOK: false},
		{name: "nil", meta: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := document.CreatedAt(tt.meta)
			if ok != tt.wantOK {
				t.Errorf("CreatedAt(%v) ok = %v, want %v", tt.meta, ok, tt.wantOK)
			}
		})
	}
}
