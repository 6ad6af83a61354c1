package shard

// ValidateHash checks if a hash string is valid format. Catalog hashes are
// ASCII alphanumeric and must be long enough to take the shard prefix.
func (s *Store) ValidateHash(hash string) bool {
	if len(hash) < shardPrefixLen {
		return false
	}

	for _, char := range hash {
		if (char < '0' || char > '9') && (char < 'a' || char > 'z') && (char < 'A' || char > 'Z') {
			return false
		}
	}

	return true
}
