package iso9660

import (
	"encoding/binary"
	"time"
)

// volumeTimestamp is the creation/modification time stamped into the
// descriptors: Options.Timestamp when set, so repeated builds of the
// same input are byte-identical, or the current time otherwise.
func (plan *ImagePlan) volumeTimestamp() time.Time {
	if !plan.opts.Timestamp.IsZero() {
		return plan.opts.Timestamp.UTC()
	}
	return time.Now().UTC()
}

func (h *volumeDescriptorHeader) marshalBinary() []byte {
	buf := make([]byte, 7)
	buf[0] = h.Type
	copy(buf[1:6], h.StandardIdentifier[:])
	buf[6] = h.Version
	return buf
}

// createPrimaryVolumeDescriptor generates the PVD sector (ECMA-119 8.4),
// pulling sizes and LBAs from the plan rather than a builder's fields.
func (plan *ImagePlan) createPrimaryVolumeDescriptor() []byte {
	header := volumeDescriptorHeader{Type: vdTypePrimary, StandardIdentifier: standardIdentifier, Version: 1}
	opts := plan.opts
	rootEntry := plan.nodes[0]

	// The 34-byte root record embedded here never carries a SUSP tail;
	// the full Rock Ridge entry set lives on the "." record of the root's
	// own extent.
	rootDRBytes := createDirectoryRecordBytes(rootEntry.iso9660Sector, plan.pvdRootDirExtentSize, rootEntry.iso9660Name, &rootEntry, false, nil)

	now := plan.volumeTimestamp()

	buf := make([]byte, 0, SectorSize)
	buf = append(buf, header.marshalBinary()...)
	buf = append(buf, 0) // byte 7: unused
	buf = append(buf, padString(opts.SystemIdentifier, 32)...)
	buf = append(buf, padString(opts.VolumeIdentifierISO, 32)...)
	buf = append(buf, make([]byte, 8)...) // bytes 72-79: unused

	buf = putBothEndianUint32(buf, plan.totalSectors)
	buf = append(buf, make([]byte, 32)...) // bytes 88-119: unused (Escape Sequences in PVD)
	buf = putBothEndianUint16(buf, 1)      // VolumeSetSize
	buf = putBothEndianUint16(buf, 1)      // VolumeSequenceNumber
	buf = putBothEndianUint16(buf, SectorSize)
	buf = putBothEndianUint32(buf, uint32(len(plan.pvdPathTableLData)))

	buf = binary.LittleEndian.AppendUint32(buf, plan.lbaPvdPathTableL)
	buf = binary.LittleEndian.AppendUint32(buf, plan.lbaPvdPathTableL2)
	buf = binary.BigEndian.AppendUint32(buf, plan.lbaPvdPathTableM)
	buf = binary.BigEndian.AppendUint32(buf, plan.lbaPvdPathTableM2)

	var rootDRFixed [34]byte
	copy(rootDRFixed[:], rootDRBytes)
	buf = append(buf, rootDRFixed[:]...)

	buf = append(buf, padString("", 128)...)
	buf = append(buf, padString(opts.PublisherIdentifierISO, 128)...)
	buf = append(buf, padString(opts.DataPreparerIdentifierISO, 128)...)
	buf = append(buf, padString(opts.ApplicationIdentifierISO, 128)...)
	buf = append(buf, padString("", 37)...)
	buf = append(buf, padString("", 37)...)
	buf = append(buf, padString("", 37)...)

	buf = append(buf, formatTimestamp(now)...)
	buf = append(buf, formatTimestamp(now)...)
	buf = append(buf, formatTimestamp(time.Time{})...)
	buf = append(buf, formatTimestamp(now)...)
	buf = append(buf, 1) // FileStructureVersion

	sector := make([]byte, SectorSize)
	copy(sector, buf)
	return sector
}

// createJolietVolumeDescriptor generates the SVD sector for Joliet
// (ECMA-119 8.5).
func (plan *ImagePlan) createJolietVolumeDescriptor() []byte {
	header := volumeDescriptorHeader{Type: vdTypeSupplementary, StandardIdentifier: standardIdentifier, Version: 1}
	opts := plan.opts
	rootEntry := plan.nodes[0]

	rootDRBytes := createDirectoryRecordBytes(rootEntry.jolietSector, plan.svdRootDirExtentSize, rootEntry.jolietName, &rootEntry, true, nil)

	now := plan.volumeTimestamp()

	buf := make([]byte, 0, SectorSize)
	buf = append(buf, header.marshalBinary()...)
	buf = append(buf, 0) // Volume Flags: 0 for basic Joliet
	buf = append(buf, padString(opts.SystemIdentifier, 32)...)
	buf = append(buf, padUTF16StringBE(opts.VolumeIdentifierJoliet, 16)...)
	buf = append(buf, make([]byte, 8)...)

	buf = putBothEndianUint32(buf, plan.totalSectors)
	escSeq := make([]byte, 32)
	copy(escSeq[0:3], opts.JolietEscapeSequence[:])
	buf = append(buf, escSeq...)
	buf = putBothEndianUint16(buf, 1)
	buf = putBothEndianUint16(buf, 1)
	buf = putBothEndianUint16(buf, SectorSize)
	buf = putBothEndianUint32(buf, uint32(len(plan.svdPathTableLData)))

	buf = binary.LittleEndian.AppendUint32(buf, plan.lbaSvdPathTableL)
	buf = binary.LittleEndian.AppendUint32(buf, plan.lbaSvdPathTableL2)
	buf = binary.BigEndian.AppendUint32(buf, plan.lbaSvdPathTableM)
	buf = binary.BigEndian.AppendUint32(buf, plan.lbaSvdPathTableM2)

	var rootDRFixed [34]byte
	copy(rootDRFixed[:], rootDRBytes)
	buf = append(buf, rootDRFixed[:]...)

	buf = append(buf, padUTF16StringBE("", 64)...)
	buf = append(buf, padUTF16StringBE(opts.PublisherIdentifierJoliet, 64)...)
	buf = append(buf, padUTF16StringBE(opts.DataPreparerIdentifierJoliet, 64)...)
	buf = append(buf, padUTF16StringBE(opts.ApplicationIdentifierJoliet, 64)...)
	buf = append(buf, padUTF16StringBEToFixedBytes("", 18, 37)...)
	buf = append(buf, padUTF16StringBEToFixedBytes("", 18, 37)...)
	buf = append(buf, padUTF16StringBEToFixedBytes("", 18, 37)...)

	buf = append(buf, formatTimestamp(now)...)
	buf = append(buf, formatTimestamp(now)...)
	buf = append(buf, formatTimestamp(time.Time{})...)
	buf = append(buf, formatTimestamp(now)...)
	buf = append(buf, 1)

	sector := make([]byte, SectorSize)
	copy(sector, buf)
	return sector
}

// createBootRecordVolumeDescriptor generates the Boot Record Descriptor
// (ECMA-119 8.2), pointing El Torito at the boot catalog's LBA.
func (plan *ImagePlan) createBootRecordVolumeDescriptor() []byte {
	header := volumeDescriptorHeader{Type: vdTypeBootRecord, StandardIdentifier: standardIdentifier, Version: 1}

	buf := make([]byte, 0, 41)
	buf = append(buf, header.marshalBinary()...)
	var bootSystemID [32]byte // NUL padded
	copy(bootSystemID[:], elToritoBootSystemID)
	buf = append(buf, bootSystemID[:]...)
	buf = append(buf, make([]byte, 32)...) // BootIdentifier: unused, zeroed
	buf = binary.LittleEndian.AppendUint32(buf, plan.bootCatalogLBA)

	sector := make([]byte, SectorSize)
	copy(sector, buf)
	return sector
}

// createVolumeDescriptorTerminator generates the VD Set Terminator sector
// (ECMA-119 8.3).
func createVolumeDescriptorTerminator() []byte {
	header := volumeDescriptorHeader{Type: vdTypeTerminator, StandardIdentifier: standardIdentifier, Version: 1}
	sector := make([]byte, SectorSize)
	copy(sector, header.marshalBinary())
	return sector
}
