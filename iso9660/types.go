package iso9660

// volumeDescriptorHeader is common to PVD, SVD, Boot Record, and Terminator.
// (ECMA-119 8.1)
type volumeDescriptorHeader struct {
	Type               byte    // vdTypePrimary, vdTypeSupplementary, vdTypeBootRecord, or vdTypeTerminator
	StandardIdentifier [5]byte // "CD001"
	Version            byte    // should be 1
}

// primaryVolumeDescriptorFields holds fields for a Primary Volume Descriptor,
// *excluding* the common 7-byte header and trailing application-use/reserved
// areas. (ECMA-119 8.4)
type primaryVolumeDescriptorFields struct {
	// byte 7: unused (1 byte)
	SystemIdentifier [32]byte // d-characters or a-characters
	VolumeIdentifier [32]byte // d-characters
	// bytes 72-79: unused (8 bytes)
	VolumeSpaceSize uint32 // size of logical blocks in the volume
	// bytes 88-119: unused (32 bytes), for Escape Sequences in ISO 9660:1999
	VolumeSetSize        uint16 // num. of volumes in the set (usually 1)
	VolumeSequenceNumber uint16 // sequence number of this volume in the set (usually 1)
	LogicalBlockSize     uint16 // size of a logical block (must be SectorSize)
	PathTableSizeBytes   uint32 // total size in bytes of the L-Type Path Table
	// LBA locations for Path Tables (Type L and Type M, first and second/optional copies)
	LPathTableLocation          uint32
	OptionalLPathTableLocation  uint32
	MPathTableLocation          uint32
	OptionalMPathTableLocation  uint32
	RootDirectoryRecord         [34]byte  // directoryRecord for the root directory
	VolumeSetIdentifier         [128]byte // d-characters
	PublisherIdentifier         [128]byte // a-characters
	DataPreparerIdentifier      [128]byte // ^
	ApplicationIdentifier       [128]byte // ^
	CopyrightFileIdentifier     [37]byte  // d-chars, d1-chars, filename
	AbstractFileIdentifier      [37]byte  // ^
	BibliographicFileIdentifier [37]byte  // ^
	VolumeCreationTimestamp     [17]byte  // decimal digits, offset
	VolumeModificationTimestamp [17]byte
	VolumeExpirationTimestamp   [17]byte // zero for "not specified"
	VolumeEffectiveTimestamp    [17]byte
	FileStructureVersion        byte // needs to be 1
	// byte 882: unused (1 byte)
	// bytes 883-1394: Application Use (512 bytes) - zeroed
	// bytes 1395-2047: Reserved (653 bytes) - zeroed
}

// supplementaryVolumeDescriptorFields holds specific fields for a Supplementary
// Volume Descriptor (Joliet). (ECMA-119 8.5)
type supplementaryVolumeDescriptorFields struct {
	// byte 7: Volume Flags (1 byte) - 0 for basic Joliet
	SystemIdentifier [32]byte // os name or space
	VolumeIdentifier [32]byte // UCS-2BE for Joliet (max 16 chars)
	// bytes 72-79: unused (8 bytes)
	VolumeSpaceSize             uint32
	EscapeSequences             [32]byte // Joliet UCS level -> {'%', '/', 'E'} - Level 3
	VolumeSetSize               uint16
	VolumeSequenceNumber        uint16
	LogicalBlockSize            uint16
	PathTableSizeBytes          uint32
	LPathTableLocation          uint32
	OptionalLPathTableLocation  uint32
	MPathTableLocation          uint32
	OptionalMPathTableLocation  uint32
	RootDirectoryRecord         [34]byte  // DirectoryRecord for root (Joliet format)
	VolumeSetIdentifier         [128]byte // UCS-2BE for Joliet (max 64 chars)
	PublisherIdentifier         [128]byte // ^
	DataPreparerIdentifier      [128]byte // ^
	ApplicationIdentifier       [128]byte // ^
	CopyrightFileIdentifier     [37]byte  // UCS-2BE (max 18 chars + padding byte)
	AbstractFileIdentifier      [37]byte  // ^
	BibliographicFileIdentifier [37]byte  // ^
	VolumeCreationTimestamp     [17]byte
	VolumeModificationTimestamp [17]byte
	VolumeExpirationTimestamp   [17]byte
	VolumeEffectiveTimestamp    [17]byte
	FileStructureVersion        byte
}

// bootRecordVolumeDescriptorFields is the Boot Record Descriptor (ECMA-119
// 8.2), used by El Torito to point at the boot catalog's LBA.
type bootRecordVolumeDescriptorFields struct {
	BootSystemIdentifier [32]byte // "EL TORITO SPECIFICATION", NUL padded
	BootIdentifier       [32]byte // unused, zeroed
	BootCatalogLBA       uint32   // LBA of the El Torito boot catalog, little-endian only
	// bytes 75-2047: rest of the boot-system-specific use area (bytes
	// 71-2047, 1977 bytes, whose first 4 bytes are BootCatalogLBA) - zeroed
}

// directoryRecordFields represents the fixed-size part of a Directory Record.
// The variable-length identifier, padding byte, and any SUSP system-use area
// are handled during marshalling. (ECMA-119 9.1)
type directoryRecordFields struct {
	ExtendedAttributeRecordLength byte    // 0
	LocationExtent                uint32  // abs LBA of the file's data or directory's extent
	DataLength                    uint32  // size of file data or directory extent in bytes
	RecordingTime                 [7]byte // year(since 1900),month,day,hour,min,sec,GMTOffset
	FileFlags                     byte    // bits for Hidden, Directory, MultiExtent, etc.
	FileUnitSize                  byte    // interleaved files
	InterleaveGapSize             byte    // ^
	VolumeSequenceNumber          uint16  // volume number (usually 1)
}

// pathTableRecordFields represents the fixed-size part of a Path Table
// Record. (ECMA-119 9.4)
type pathTableRecordFields struct {
	ExtendedAttributeRecordLength byte
	LocationOfExtent              uint32
	ParentDirectoryNumber         uint16 // Path Table directory number of the parent directory
}
