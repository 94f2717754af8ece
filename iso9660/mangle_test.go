package iso9660

import "testing"

func TestSanitizeISO9660NameFile(t *testing.T) {
	got := sanitizeISO9660Name("readme.txt", false)
	if got != "README.TXT" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeISO9660NameTruncatesToEightDotThree(t *testing.T) {
	got := sanitizeISO9660Name("averylongfilename.longext", false)
	if got != "AVERYLON.LON" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeISO9660NameDirectoryHasNoExtension(t *testing.T) {
	got := sanitizeISO9660Name("my.docs", true)
	if got != "MY_DOCS" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeISO9660NameEmptyFallsBackToPlaceholder(t *testing.T) {
	if got := sanitizeISO9660Name("", true); got != "DIR" {
		t.Fatalf("got %q", got)
	}
	if got := sanitizeISO9660Name("", false); got != "FILE" {
		t.Fatalf("got %q", got)
	}
}

func TestSanitizeISO9660NameInvalidCharsBecomeUnderscores(t *testing.T) {
	if got := sanitizeISO9660Name("...", true); got != "___" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateJolietNameWithinLimit(t *testing.T) {
	name := "short-name.txt"
	if got := truncateJolietName(name); got != name {
		t.Fatalf("got %q, want unchanged %q", got, name)
	}
}

func TestTruncateJolietNameOverLimit(t *testing.T) {
	long := make([]rune, JolietMaxFilenameChars+10)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateJolietName(string(long))
	if len([]rune(got)) != JolietMaxFilenameChars {
		t.Fatalf("expected %d runes, got %d", JolietMaxFilenameChars, len([]rune(got)))
	}
}

func TestMangleSiblingNamesIsDeterministic(t *testing.T) {
	names := []string{"ZEBRA.TXT", "APPLE.TXT", "APPLE.TXT", "APPLE.TXT"}
	namer := func(i int) string { return names[i] }

	first := mangleSiblingNames(len(names), namer)
	second := mangleSiblingNames(len(names), namer)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated call produced different mangling: %v vs %v", first, second)
		}
	}
	if first[0] != "ZEBRA.TXT" {
		t.Fatalf("expected the sole ZEBRA.TXT to survive unmangled, got %q", first[0])
	}
}

func TestMangleSiblingNamesDisambiguatesCollisions(t *testing.T) {
	names := []string{"SAME.TXT", "SAME.TXT", "SAME.TXT"}
	got := mangleSiblingNames(len(names), func(i int) string { return names[i] })

	seen := make(map[string]bool)
	for _, n := range got {
		if seen[n] {
			t.Fatalf("duplicate mangled name %q in %v", n, got)
		}
		seen[n] = true
		if len(n) > 12 { // 8.3 budget: 8 + '.' + 3
			t.Fatalf("mangled name %q exceeds the 8.3 budget", n)
		}
	}
}
