package memento

// metadataKeyTier/metadataKeyForgotten are the sqvect metadata keys the
// vectorstore_sqvect backing implementation filters on. Kept here so both
// the writer and reader sides of the vector index agree on the schema.
const (
	metadataKeyTier      = "tier"
	metadataKeyForgotten = "forgottenState"
)

// vaultExcluded reports whether a tier must never reach the vector index
// (spec.md §4.1/§6: Vault-tier memories are never embedded or indexed).
func vaultExcluded(t Tier) bool {
	return t == TierVault
}
