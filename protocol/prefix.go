package protocol

const (
	// Vault records
	KeyScatter = "vault:scatter" // Encrypted scatter blob
	KeySalt    = "vault:salt"    // KDF salt (not secret)

	// Auxiliary secrets sealed under the live seed
	PrefixOptional = "opt:" // opt:Name = Sealed JSON
)
