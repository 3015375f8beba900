package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeConfigHash computes a deterministic hash of everything that decides
// what a run removes. The remove set is deduplicated and sorted, so order
// and repetition do not change the hash.
func ComputeConfigHash(discriminator string, removeSet []string, script string) string {
	h := sha256.New()

	fmt.Fprintf(h, "discriminator:%s\n", discriminator)

	seen := make(map[string]bool, len(removeSet))
	var sorted []string
	for _, v := range removeSet {
		if !seen[v] {
			seen[v] = true
			sorted = append(sorted, v)
		}
	}
	sort.Strings(sorted)
	for _, v := range sorted {
		fmt.Fprintf(h, "remove:%q\n", v)
	}

	fmt.Fprintf(h, "script:%s\n", script)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// ContentHash returns the hex sha256 of content.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
