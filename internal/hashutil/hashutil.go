// Package hashutil provides the single pluggable digest function the
// ledger uses for chain linkage. The Provider is chosen at run time by
// name (ByName, from the uem.record.hash configuration value) each
// time a ledger is opened; the ledger file does not record the choice,
// and reopening a ledger under a different Provider fails its chain
// linkage check.
package hashutil

import "crypto/sha256"

// Provider is the narrow hashing interface the ledger depends on.
// Implementations must be pure and deterministic: same input, same
// 32-byte digest, forever.
type Provider interface {
	Sum(data []byte) [32]byte
	// Name identifies the algorithm, matching the uem.record.hash
	// configuration value.
	Name() string
}

// Sha256Provider implements Provider with the standard library SHA-256.
type Sha256Provider struct{}

func (Sha256Provider) Sum(data []byte) [32]byte { return sha256.Sum256(data) }
func (Sha256Provider) Name() string             { return "sha256" }

// ByName resolves a configured algorithm name to a Provider. Unknown
// names fall back to the blake3 default (matching config.Spec's
// default uem.record.hash value).
func ByName(name string) Provider {
	switch name {
	case "sha256":
		return Sha256Provider{}
	case "blake3", "":
		return Blake3Provider{}
	default:
		return Blake3Provider{}
	}
}
