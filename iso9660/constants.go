// Package iso9660 plans and writes ECMA-119 (ISO 9660) filesystem images,
// with support for the El Torito boot extension, Joliet, and Rock Ridge
// POSIX extensions. It also reads such images back.
package iso9660

const (
	// SectorSize is the fixed logical block size mandated by ECMA-119.
	SectorSize = 2048

	// JolietMaxFilenameChars is the Joliet Level 3 UCS-2 identifier limit.
	JolietMaxFilenameChars = 64

	// SystemAreaNumSectors is the number of reserved sectors (LBA 0..15)
	// preceding the volume descriptor set.
	SystemAreaNumSectors = 16

	// MaxFileSize is the largest size a single directory record's 32-bit
	// data-length field can describe (ECMA-119 9.1.4). Inputs larger than
	// this are split across multiple directory records, with the
	// multi-extent flag set on all but the last.
	MaxFileSize = (1 << 32) - 1

	// maxExtentBytes is the per-extent split size for files over
	// MaxFileSize. Every extent of a multi-extent file except the last
	// must span a whole number of logical blocks (ECMA-119 6.4.2), so the
	// split point is MaxFileSize rounded down to a sector boundary.
	maxExtentBytes = MaxFileSize &^ (SectorSize - 1)

	// vdTypePrimary identifies a Primary Volume Descriptor.
	vdTypePrimary byte = 1
	// vdTypeSupplementary identifies a Supplementary Volume Descriptor (Joliet).
	vdTypeSupplementary byte = 2
	// vdTypeBootRecord identifies a Boot Record Descriptor (El Torito).
	vdTypeBootRecord byte = 0
	// vdTypeTerminator identifies a Volume Descriptor Set Terminator.
	vdTypeTerminator byte = 255

	// drFixedPartSize is the size of a Directory Record excluding the
	// identifier and any trailing system-use (SUSP/Rock Ridge) area.
	// (ECMA-119 9.1)
	drFixedPartSize = 33

	// ptRecFixedPartSize is the size of a Path Table Record excluding the
	// identifier. (ECMA-119 9.4)
	ptRecFixedPartSize = 8

	// File Flags bits (ECMA-119 9.1.6).
	fileFlagHidden      byte = 0x01
	fileFlagDirectory   byte = 0x02
	fileFlagMultiExtent byte = 0x80

	// elToritoBootSystemID is the Boot Record Descriptor's fixed
	// "Boot System Identifier" string for El Torito.
	elToritoBootSystemID = "EL TORITO SPECIFICATION"
)

// standardIdentifier is the 5-byte "CD001" magic shared by every volume
// descriptor header.
var standardIdentifier = [5]byte{'C', 'D', '0', '0', '1'}
