package syncsvc

import (
	"testing"
)

func TestDecodeModules(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want SyncModules
	}{
		{"empty falls back to defaults", "", DefaultModules()},
		{"invalid json falls back to defaults", "{not json", DefaultModules()},
		{"explicit selection", `{"contacts":true,"orders":false,"ledger":false,"reconcile":false}`,
			SyncModules{Contacts: true}},
		{"reconcile forces ledger", `{"reconcile":true}`,
			SyncModules{Ledger: true, Reconcile: true}},
		{"unknown fields ignored", `{"orders":true,"legacy":1}`,
			SyncModules{Orders: true}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := DecodeModules([]byte(c.raw))
			if got != c.want {
				t.Fatalf("DecodeModules(%q) = %+v, want %+v", c.raw, got, c.want)
			}
		})
	}
}

func TestNormalizeModules(t *testing.T) {
	got := NormalizeModules(SyncModules{Reconcile: true})
	if !got.Ledger {
		t.Fatal("reconcile without ledger must pull the ledger module in")
	}

	got = NormalizeModules(SyncModules{Orders: true})
	if got.Ledger || got.Reconcile {
		t.Fatalf("normalize must not enable unrequested modules: %+v", got)
	}
}

func TestModulesRoundTrip(t *testing.T) {
	mod := SyncModules{Contacts: true, Orders: true}
	if got := DecodeModules(EncodeModules(mod)); got != mod {
		t.Fatalf("round trip changed modules: %+v -> %+v", mod, got)
	}
}

func TestCursorStateRoundTrip(t *testing.T) {
	state := CursorState{
		Contacts: CursorEntry{UpdatedSince: "2026-03-01T10:00:00Z"},
		Orders:   CursorEntry{UpdatedSince: "2026-03-02T00:00:00Z"},
	}
	got := DecodeCursorState(EncodeCursorState(state))
	if got != state {
		t.Fatalf("round trip changed cursor state: %+v -> %+v", state, got)
	}

	if got := DecodeCursorState(nil); got != (CursorState{}) {
		t.Fatalf("empty raw must decode to a zero state, got %+v", got)
	}
	if got := DecodeCursorState([]byte("broken")); got != (CursorState{}) {
		t.Fatalf("broken raw must decode to a zero state, got %+v", got)
	}
}

func TestSettingsRoundTripKeepsModules(t *testing.T) {
	mod := SyncModules{Orders: true, Ledger: true}
	settings := ConnectionSettings{WalletId: "55", AdAccountId: "act_123", Modules: &mod}

	got := DecodeSettings(EncodeSettings(settings))
	if got.WalletId != "55" || got.AdAccountId != "act_123" {
		t.Fatalf("round trip lost ids: %+v", got)
	}
	if got.Modules == nil || *got.Modules != mod {
		t.Fatalf("round trip lost modules: %+v", got.Modules)
	}

	if got := DecodeSettings(nil); got.Modules != nil || got.WalletId != "" {
		t.Fatalf("empty settings must decode to zero value, got %+v", got)
	}
}
