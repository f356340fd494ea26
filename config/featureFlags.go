package config

import (
	"os"
	"strings"
)

// StrictLedgerImmutability enables fintech-grade guardrails:
// wallet ledger rows are never updated after first insert; re-ingesting an
// entry keeps the stored values and only refreshes sync metadata.
//
// Set via env:
// - STRICT_LEDGER_IMMUTABLE=true (default behavior is already immutable; this
//   flag additionally makes violations an error instead of a silent skip)
func StrictLedgerImmutability() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_LEDGER_IMMUTABLE")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// SyncModuleEnabled gates individual sync modules per deployment.
//
// Set via env:
// - SYNC_MODULES="CONTACTS,ORDERS,LEDGER"
//
// Empty means all modules are enabled. Module keys are case-insensitive.
func SyncModuleEnabled(module string) bool {
	module = strings.ToUpper(strings.TrimSpace(module))
	if module == "" {
		return false
	}
	raw := os.Getenv("SYNC_MODULES")
	if strings.TrimSpace(raw) == "" {
		return true
	}
	for _, part := range strings.Split(raw, ",") {
		if strings.ToUpper(strings.TrimSpace(part)) == module {
			return true
		}
	}
	return false
}
