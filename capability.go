package granola

// HashAlgo names a hashing algorithm usable in a decode.hash tag:
//
//	Password string `granola:"password" decode.hash:"argon2"`
type HashAlgo string

const (
	// HashArgon2 uses Argon2id (salted, slow). For passwords.
	HashArgon2 HashAlgo = "argon2"

	// HashBcrypt uses bcrypt (salted, slow). For passwords.
	HashBcrypt HashAlgo = "bcrypt"

	// HashSHA256 is a deterministic SHA-256 digest. For fingerprints, NOT passwords.
	HashSHA256 HashAlgo = "sha256"

	// HashSHA512 is a deterministic SHA-512 digest. For fingerprints, NOT passwords.
	HashSHA512 HashAlgo = "sha512"

	// HashBlake3 is a deterministic BLAKE3 digest. For fingerprints, NOT passwords.
	HashBlake3 HashAlgo = "blake3"
)

var validHashAlgos = map[HashAlgo]bool{
	HashArgon2: true,
	HashBcrypt: true,
	HashSHA256: true,
	HashSHA512: true,
	HashBlake3: true,
}

// IsValidHashAlgo returns true if the algorithm is a known hash algorithm.
func IsValidHashAlgo(algo HashAlgo) bool {
	return validHashAlgos[algo]
}
