package iso9660

import (
	"bytes"
	"encoding/binary"
)

// bootCatalogVirtualSectorBytes is El Torito's own sector-count unit for
// the Initial/Default/Section Entry "Sector Count" field: 512 bytes,
// distinct from the 2048-byte LBA convention everything else in the image
// uses. Named explicitly so the two units are never silently confused.
const bootCatalogVirtualSectorBytes = 512

// mediaCapacityBytes returns the fixed payload capacity an emulated media
// type can hold, or 0 for media without a fixed capacity (no-emulation,
// hard disk).
func mediaCapacityBytes(m BootMedia) uint64 {
	switch m {
	case BootMediaFloppy1200KB:
		return 1200 * 1024
	case BootMediaFloppy1440KB:
		return 1440 * 1024
	case BootMediaFloppy2880KB:
		return 2880 * 1024
	default:
		return 0
	}
}

// virtualSectorsForBytes converts a boot image's byte length into the
// 512-byte unit the catalog's Sector Count field expects.
func virtualSectorsForBytes(n uint64) uint16 {
	count := (n + bootCatalogVirtualSectorBytes - 1) / bootCatalogVirtualSectorBytes
	return uint16(count)
}

// resolvedBootEntry pairs a BootEntry with the LBA/size its image resolved
// to once the tree was built.
type resolvedBootEntry struct {
	BootEntry
	lba  uint32
	size uint64
}

// buildBootCatalog assembles the El Torito boot catalog: a Validation
// Entry, the first entry's Default Entry, and any further entries grouped
// by platform under Section Header / Section Entry pairs (El Torito 2.0
// section 2). The catalog always occupies exactly one 2048-byte sector;
// 64 possible 32-byte records is far beyond what any realistic boot
// configuration needs.
func buildBootCatalog(entries []resolvedBootEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	for _, e := range entries {
		if capacity := mediaCapacityBytes(e.Media); capacity > 0 && e.size > capacity {
			return nil, newError(KindBootCatalogError,
				"boot image '"+e.BootImagePath+"' exceeds its emulated media capacity", nil)
		}
	}

	buf := new(bytes.Buffer)

	val, err := marshalValidationEntry(&validationEntryFields{
		HeaderID:   0x01,
		PlatformID: uint8(entries[0].Platform),
		IDString:   fixedString24(elToritoBootSystemID),
	})
	if err != nil {
		return nil, err
	}
	val = applyValidationChecksum(val)
	buf.Write(val)

	def, err := marshalCatalogEntry(&initialOrSectionEntryFields{
		BootIndicator: 0x88,
		BootMediaType: uint8(entries[0].Media),
		LoadSegment:   entries[0].LoadSegment,
		SystemType:    entries[0].SystemType,
		SectorCount:   virtualSectorsForBytes(entries[0].size),
		LoadLBA:       entries[0].lba,
	})
	if err != nil {
		return nil, err
	}
	buf.Write(def)

	rest := entries[1:]
	for i := 0; i < len(rest); {
		platform := rest[i].Platform
		j := i
		for j < len(rest) && rest[j].Platform == platform {
			j++
		}
		group := rest[i:j]

		indicator := uint8(0x90)
		if j == len(rest) {
			indicator = 0x91
		}
		hdr, err := marshalSectionHeader(&sectionHeaderFields{
			HeaderIndicator: indicator,
			PlatformID:      uint8(platform),
			NumEntries:      uint16(len(group)),
		})
		if err != nil {
			return nil, err
		}
		buf.Write(hdr)

		for _, e := range group {
			se, err := marshalCatalogEntry(&initialOrSectionEntryFields{
				BootIndicator: 0x88,
				BootMediaType: uint8(e.Media),
				LoadSegment:   e.LoadSegment,
				SystemType:    e.SystemType,
				SectorCount:   virtualSectorsForBytes(e.size),
				LoadLBA:       e.lba,
			})
			if err != nil {
				return nil, err
			}
			buf.Write(se)
		}
		i = j
	}

	if buf.Len() > SectorSize {
		return nil, newError(KindBootCatalogError, "boot catalog exceeds one sector", nil)
	}
	padded := make([]byte, SectorSize)
	copy(padded, buf.Bytes())
	return padded, nil
}

// applyValidationChecksum fills in the Checksum and key-byte fields of a
// freshly marshaled 32-byte Validation Entry so the sum of its sixteen
// little-endian 16-bit words is congruent to 0 mod 2^16 (El Torito 2.0
// section 2.0). The 0xAA55 key word participates in the sum, so it is
// written first.
func applyValidationChecksum(entry []byte) []byte {
	entry[0x1E] = 0x55
	entry[0x1F] = 0xAA
	var sum uint16
	for i := 0; i < 32; i += 2 {
		if i == 28 {
			continue // the checksum word itself
		}
		sum += binary.LittleEndian.Uint16(entry[i : i+2])
	}
	binary.LittleEndian.PutUint16(entry[28:30], uint16(-int32(sum)))
	return entry
}

// verifyValidationChecksum reports whether the sum of sixteen
// little-endian 16-bit words over a 32-byte Validation Entry is 0 mod
// 2^16, and that the 0x55/0xAA key bytes are present; ReadBootCatalog
// applies this check when reading a catalog back.
func verifyValidationChecksum(entry []byte) bool {
	if len(entry) < 32 {
		return false
	}
	if entry[0x1E] != 0x55 || entry[0x1F] != 0xAA {
		return false
	}
	var sum uint16
	for i := 0; i < 32; i += 2 {
		sum += binary.LittleEndian.Uint16(entry[i : i+2])
	}
	return sum == 0
}

func fixedString24(s string) [24]byte {
	var b [24]byte
	copy(b[:], s)
	return b
}
