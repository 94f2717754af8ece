package iso9660

import "testing"

func TestVirtualSectorsForBytesRoundsUpTo512ByteUnits(t *testing.T) {
	cases := []struct {
		bytes uint64
		want  uint16
	}{
		{0, 0},
		{1, 1},
		{512, 1},
		{513, 2},
		{1024, 2},
	}
	for _, c := range cases {
		if got := virtualSectorsForBytes(c.bytes); got != c.want {
			t.Fatalf("virtualSectorsForBytes(%d) = %d, want %d", c.bytes, got, c.want)
		}
	}
}

func TestApplyValidationChecksumProducesAVerifiableEntry(t *testing.T) {
	entry, err := marshalValidationEntry(&validationEntryFields{
		HeaderID:   0x01,
		PlatformID: uint8(BootPlatformX86),
		IDString:   fixedString24("TESTSYS"),
	})
	if err != nil {
		t.Fatalf("marshalValidationEntry: %v", err)
	}
	entry = applyValidationChecksum(entry)

	if !verifyValidationChecksum(entry) {
		t.Fatalf("checksum should verify immediately after being applied")
	}
	if entry[0x1E] != 0x55 || entry[0x1F] != 0xAA {
		t.Fatalf("expected key bytes 0x55/0xAA, got 0x%02x/0x%02x", entry[0x1E], entry[0x1F])
	}
}

func TestVerifyValidationChecksumRejectsCorruption(t *testing.T) {
	entry, err := marshalValidationEntry(&validationEntryFields{HeaderID: 0x01, PlatformID: 0})
	if err != nil {
		t.Fatalf("marshalValidationEntry: %v", err)
	}
	entry = applyValidationChecksum(entry)
	entry[4] ^= 0xff // corrupt a byte covered by the checksum

	if verifyValidationChecksum(entry) {
		t.Fatalf("expected checksum verification to fail after corruption")
	}
}

func TestBuildBootCatalogSingleEntryHasNoSectionHeaders(t *testing.T) {
	entries := []resolvedBootEntry{{
		BootEntry: BootEntry{Platform: BootPlatformX86, Media: BootMediaNoEmulation},
		lba:       100,
		size:      2048,
	}}
	catalog, err := buildBootCatalog(entries)
	if err != nil {
		t.Fatalf("buildBootCatalog: %v", err)
	}
	if len(catalog) != SectorSize {
		t.Fatalf("expected a single %d-byte sector, got %d bytes", SectorSize, len(catalog))
	}
	if !verifyValidationChecksum(catalog[0:32]) {
		t.Fatalf("expected a valid checksum in the Validation Entry")
	}

	def, err := unmarshalCatalogEntry(catalog[32:64])
	if err != nil {
		t.Fatalf("unmarshalCatalogEntry: %v", err)
	}
	if def.LoadLBA != 100 {
		t.Fatalf("expected LoadLBA 100, got %d", def.LoadLBA)
	}
	if def.SectorCount != virtualSectorsForBytes(2048) {
		t.Fatalf("expected SectorCount %d, got %d", virtualSectorsForBytes(2048), def.SectorCount)
	}

	// no section header indicator byte should follow a single-entry catalog
	if catalog[64] == 0x90 || catalog[64] == 0x91 {
		t.Fatalf("unexpected Section Header after the only entry")
	}
}

func TestBuildBootCatalogGroupsAdditionalEntriesBySectionHeader(t *testing.T) {
	entries := []resolvedBootEntry{
		{BootEntry: BootEntry{Platform: BootPlatformX86, Media: BootMediaNoEmulation}, lba: 10, size: 512},
		{BootEntry: BootEntry{Platform: BootPlatformEFI, Media: BootMediaNoEmulation}, lba: 20, size: 512},
	}
	catalog, err := buildBootCatalog(entries)
	if err != nil {
		t.Fatalf("buildBootCatalog: %v", err)
	}

	indicator := catalog[64]
	if indicator != 0x91 {
		t.Fatalf("expected the last (and only) Section Header to be marked 0x91, got 0x%02x", indicator)
	}
	platform := catalog[65]
	if platform != uint8(BootPlatformEFI) {
		t.Fatalf("expected the Section Header platform to be EFI, got 0x%02x", platform)
	}

	se, err := unmarshalCatalogEntry(catalog[96:128])
	if err != nil {
		t.Fatalf("unmarshalCatalogEntry: %v", err)
	}
	if se.LoadLBA != 20 {
		t.Fatalf("expected the section entry's LoadLBA to be 20, got %d", se.LoadLBA)
	}
}

func TestBuildBootCatalogEmptyReturnsNil(t *testing.T) {
	catalog, err := buildBootCatalog(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog != nil {
		t.Fatalf("expected a nil catalog for no boot entries")
	}
}
