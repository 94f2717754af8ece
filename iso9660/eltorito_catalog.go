package iso9660

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"
)

// defaultByteOrder is little-endian for every El Torito catalog structure
// (El Torito 2.0 doesn't use ECMA-119's both-byte-order convention at all;
// these fields are single-endian, restruct's native case).
var defaultByteOrder binary.ByteOrder = binary.LittleEndian

// validationEntryFields is the catalog's first 32-byte record (El Torito
// 2.0 section 2.0).
type validationEntryFields struct {
	HeaderID   uint8 // 0x01
	PlatformID uint8 // BootPlatform
	Reserved   uint16
	IDString   [24]byte
	Checksum   uint16
	KeyByte55  uint8
	KeyByteAA  uint8
}

// initialOrSectionEntryFields is a 32-byte Initial/Default Entry or
// Section Entry (El Torito 2.0 sections 2.1, 2.3).
type initialOrSectionEntryFields struct {
	BootIndicator uint8 // 0x88 bootable, 0x00 not bootable
	BootMediaType uint8
	LoadSegment   uint16
	SystemType    uint8
	Unused1       uint8
	SectorCount   uint16 // in 512-byte "virtual sectors"
	LoadLBA       uint32 // LBA of the boot image, in 2048-byte sectors
	Unused2       [20]byte
}

// sectionHeaderFields is a 32-byte Section Header (El Torito 2.0 section 2.4).
type sectionHeaderFields struct {
	HeaderIndicator uint8 // 0x90 more sections follow, 0x91 last section
	PlatformID      uint8
	NumEntries      uint16
	IDString        [28]byte
}

func marshalValidationEntry(f *validationEntryFields) ([]byte, error) {
	b, err := restruct.Pack(defaultByteOrder, f)
	if err != nil {
		return nil, newError(KindBootCatalogError, "marshaling El Torito Validation Entry", err)
	}
	return b, nil
}

func marshalCatalogEntry(f *initialOrSectionEntryFields) ([]byte, error) {
	b, err := restruct.Pack(defaultByteOrder, f)
	if err != nil {
		return nil, newError(KindBootCatalogError, "marshaling El Torito catalog entry", err)
	}
	return b, nil
}

func marshalSectionHeader(f *sectionHeaderFields) ([]byte, error) {
	b, err := restruct.Pack(defaultByteOrder, f)
	if err != nil {
		return nil, newError(KindBootCatalogError, "marshaling El Torito section header", err)
	}
	return b, nil
}

func unmarshalValidationEntry(raw []byte) (*validationEntryFields, error) {
	var f validationEntryFields
	if err := restruct.Unpack(raw, defaultByteOrder, &f); err != nil {
		return nil, newError(KindBootCatalogError, "unmarshaling El Torito Validation Entry", err)
	}
	return &f, nil
}

func unmarshalCatalogEntry(raw []byte) (*initialOrSectionEntryFields, error) {
	var f initialOrSectionEntryFields
	if err := restruct.Unpack(raw, defaultByteOrder, &f); err != nil {
		return nil, newError(KindBootCatalogError, "unmarshaling El Torito catalog entry", err)
	}
	return &f, nil
}
