package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeEntryHash chains an entry onto its predecessor. The hash covers
// only the fields the anonymize pass never touches, so a scrubbed ledger
// still verifies end to end. The first entry of a client chains off the
// empty string.
func ComputeEntryHash(prevHash string, e *LedgerEntry) string {
	canonical := fmt.Sprintf("%s|%d|%d|%d|%t|%d|%d|%d|%d",
		prevHash,
		e.ID,
		e.ClientID,
		e.Amount,
		e.Attributed,
		e.IncrementalRevenue,
		e.NetProfitUplift,
		e.FeeAmount,
		e.CreatedAt.UTC().UnixNano(),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// AnonymizedOrderID derives the stable replacement for an external order
// id. Hashing keeps the (client_id, external_order_id) uniqueness intact
// while severing the link to the source platform's identifier.
func AnonymizedOrderID(externalOrderID string) string {
	sum := sha256.Sum256([]byte(externalOrderID))
	return "anon-" + hex.EncodeToString(sum[:])[:16]
}
