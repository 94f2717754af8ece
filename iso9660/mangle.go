package iso9660

import (
	"fmt"
	"strings"
)

// mangle.go sanitizes a node's original name into the per-namespace names a
// directory record actually stores: an ECMA-119 name (Level 1, 8.3,
// uppercase d-characters), an optional Joliet name (UCS-2, up to
// JolietMaxFilenameChars), and, when Rock Ridge is enabled, the original
// name is preserved verbatim in an NM entry, so no mangling is lossy.
//
// Sibling collisions after mangling are resolved deterministically: names
// are mangled in a fixed order (alphabetical by original name) and a
// numeric suffix is appended to the base of the second and further
// entries that collide, the way FAT short-name generation disambiguates
// "LONGFI~1.TXT" / "LONGFI~2.TXT", generalized here to the 8.3 budget.

// dCharacters is the ECMA-119 7.4.1 identifier alphabet. Everything
// outside it maps to '_'.
const dCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_"

const (
	level1BaseMaxLength      = 8
	level1ExtensionMaxLength = 3
)

// mangleDString maps a name fragment onto the d-character alphabet,
// uppercasing first and truncating to maxCharacters.
func mangleDString(input string, maxCharacters int) string {
	input = strings.ToUpper(input)

	var mangled strings.Builder
	for _, r := range input {
		if mangled.Len() >= maxCharacters {
			break
		}
		if strings.ContainsRune(dCharacters, r) {
			mangled.WriteRune(r)
		} else {
			mangled.WriteByte('_')
		}
	}
	return mangled.String()
}

// sanitizeISO9660Name converts a name to an ISO9660 Level 1 identifier:
// 8.3 for files (ECMA-119 7.5), a bare 8-character name for directories
// (7.6). The ";1" version suffix is the caller's concern, since it must
// survive collision deduplication intact.
func sanitizeISO9660Name(originalName string, isDirectory bool) string {
	if isDirectory {
		name := mangleDString(originalName, level1BaseMaxLength)
		if name == "" {
			return "DIR"
		}
		return name
	}

	// Split base from extension at the last interior dot; a leading dot
	// (".bashrc") is part of the base, not an empty extension.
	base, ext := originalName, ""
	if dot := strings.LastIndex(originalName, "."); dot > 0 && dot < len(originalName)-1 {
		base, ext = originalName[:dot], originalName[dot+1:]
	}

	base = mangleDString(base, level1BaseMaxLength)
	ext = mangleDString(ext, level1ExtensionMaxLength)
	if base == "" {
		base = "FILE"
	}
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// truncateJolietName truncates a name component if it exceeds
// JolietMaxFilenameChars (64 UCS-2 characters for Joliet Level 3).
func truncateJolietName(originalName string) string {
	if originalName == "." || originalName == ".." {
		return originalName
	}
	runes := []rune(originalName)
	if len(runes) > JolietMaxFilenameChars {
		truncated := string(runes[:JolietMaxFilenameChars])
		warningf("joliet name %q truncated to %q (%d char limit)", originalName, truncated, JolietMaxFilenameChars)
		return truncated
	}
	return originalName
}

// mangleSiblingNames assigns a unique name in the given namespace to each
// entry in siblings, where namer produces the natural (possibly colliding)
// candidate name for one entry. Input order is preserved in the returned
// slice; collisions are broken by visiting siblings in alphabetical order
// of their natural name so the outcome does not depend on scan order.
func mangleSiblingNames(n int, namer func(i int) string) []string {
	type indexed struct {
		i    int
		name string
	}
	candidates := make([]indexed, n)
	for i := 0; i < n; i++ {
		candidates[i] = indexed{i: i, name: namer(i)}
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// stable alphabetical ordering by candidate name, tie-broken by
	// original index, so mangling is deterministic regardless of the
	// caller's traversal order.
	for a := 1; a < len(order); a++ {
		for b := a; b > 0; b-- {
			ca, cb := candidates[order[b-1]], candidates[order[b]]
			if ca.name > cb.name || (ca.name == cb.name && ca.i > cb.i) {
				order[b-1], order[b] = order[b], order[b-1]
			} else {
				break
			}
		}
	}

	result := make([]string, n)
	seen := make(map[string]int, n)
	for _, idx := range order {
		name := candidates[idx].name
		base, ext := splitExt(name)
		final := name
		for {
			count, exists := seen[final]
			if !exists {
				seen[final] = 0
				break
			}
			count++
			seen[final] = count
			final = disambiguate(base, ext, count)
		}
		seen[final] = 0
		result[candidates[idx].i] = final
	}
	return result
}

func splitExt(name string) (base, ext string) {
	idx := strings.LastIndex(name, ".")
	if idx == -1 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// disambiguate shortens base to leave room for a "~N" suffix, the way FAT
// short-name generation does, clamped to the 8-char ECMA-119 budget.
func disambiguate(base, ext string, n int) string {
	suffix := fmt.Sprintf("~%d", n)
	maxBase := 8 - len(suffix)
	if maxBase < 1 {
		maxBase = 1
	}
	if len(base) > maxBase {
		base = base[:maxBase]
	}
	if ext == "" {
		return base + suffix
	}
	return base + suffix + "." + ext
}
