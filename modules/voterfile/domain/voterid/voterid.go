package voterid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SystemIDTag prefixes every externally visible contact identifier, so a
// system ID is recognizable on sight and never mistaken for a raw voter ID.
const SystemIDTag = "AV-"

// systemIDDigits is the number of digest hex characters kept in a system ID.
// 12 hex chars is 48 bits; collision odds stay negligible for table sizes in
// the hundreds of thousands, and lookups confirm the full hash regardless.
const systemIDDigits = 12

const redactKeep = 4

// Identity carries every derived form of an external voter identifier. The
// raw identifier itself must never be stored or logged; construct an Identity
// at the ingestion boundary and pass only it around.
type Identity struct {
	Hash     string
	Redacted string
	SystemID string
}

func FromRaw(raw string) Identity {
	h := Hash(raw)
	return Identity{
		Hash:     h,
		Redacted: Redact(raw),
		SystemID: SystemID(h),
	}
}

// Hash derives the stable join key for a raw identifier: SHA-256 over the
// trimmed value, hex encoded. Deterministic across runs.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// Redact keeps at most the last four characters of the raw identifier and
// masks the rest. Identifiers of four characters or fewer are fully masked.
func Redact(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) <= redactKeep {
		return strings.Repeat("*", redactKeep)
	}
	return strings.Repeat("*", len(raw)-redactKeep) + raw[len(raw)-redactKeep:]
}

// SystemID derives the short display identifier from a full digest.
func SystemID(hash string) string {
	if len(hash) < systemIDDigits {
		return SystemIDTag + hash
	}
	return SystemIDTag + hash[:systemIDDigits]
}
