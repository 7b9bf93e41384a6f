package buildcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// EffectiveHash composes a file's cache fingerprint from its content hash,
// the content hashes of its includes, the macro defines, and the include
// directories. Every list is sorted first, so the fingerprint is
// insensitive to declaration order.
func EffectiveHash(contentHash string, includeHashes, defines, includeDirs []string) string {
	sortedIncludes := append([]string(nil), includeHashes...)
	sortedDefines := append([]string(nil), defines...)
	sortedDirs := append([]string(nil), includeDirs...)
	sort.Strings(sortedIncludes)
	sort.Strings(sortedDefines)
	sort.Strings(sortedDirs)

	var b strings.Builder
	b.WriteString(contentHash)
	for _, h := range sortedIncludes {
		b.WriteString("|")
		b.WriteString(h)
	}
	b.WriteString("||")
	for _, d := range sortedDefines {
		b.WriteString("|")
		b.WriteString(d)
	}
	b.WriteString("||")
	for _, d := range sortedDirs {
		b.WriteString("|")
		b.WriteString(d)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// FilelistKey composes the whole-project fingerprint from the loom
// version, the manifest checksum, and the sorted per-file effective
// hashes.
func FilelistKey(loomVersion, manifestHash string, effectiveHashes []string) string {
	sorted := append([]string(nil), effectiveHashes...)
	sort.Strings(sorted)

	var b strings.Builder
	b.WriteString(loomVersion)
	b.WriteString("|")
	b.WriteString(manifestHash)
	for _, h := range sorted {
		b.WriteString("|")
		b.WriteString(h)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// HashBytes returns the SHA-256 hex digest of data.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
