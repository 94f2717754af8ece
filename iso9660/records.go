package iso9660

import (
	"bytes"
	"sort"
)

// recordBuilder bundles the tree and per-node Rock Ridge system-use tails
// needed to marshal directory records.
type recordBuilder struct {
	nodes   []node
	opts    *Options
	rrTails map[int][]byte // nodeIndex -> SUSP system-use area bytes for that node's own entry
}

// marshalDirectoryRecord converts directoryRecordFields, an identifier, and
// an optional SUSP system-use tail into a full DR byte slice (ECMA-119 9.1;
// SUSP appends its area immediately after the identifier + padding byte).
func marshalDirectoryRecord(fields *directoryRecordFields, identifier []byte, suspTail []byte) []byte {
	identifierLen := byte(len(identifier))
	idPad := 0
	if (drFixedPartSize+int(identifierLen))%2 != 0 {
		idPad = 1
	}
	recordLen := drFixedPartSize + int(identifierLen) + idPad + len(suspTail)

	buf := make([]byte, 0, recordLen)
	buf = append(buf, byte(recordLen), fields.ExtendedAttributeRecordLength)
	buf = putBothEndianUint32(buf, fields.LocationExtent)
	buf = putBothEndianUint32(buf, fields.DataLength)
	buf = append(buf, fields.RecordingTime[:]...)
	buf = append(buf, fields.FileFlags, fields.FileUnitSize, fields.InterleaveGapSize)
	buf = putBothEndianUint16(buf, fields.VolumeSequenceNumber)
	buf = append(buf, identifierLen)
	buf = append(buf, identifier...)
	if idPad == 1 {
		buf = append(buf, 0)
	}
	buf = append(buf, suspTail...)
	return buf
}

// populateDirectoryRecordFields fills the fixed fields of a
// directoryRecordFields struct for targetEntry.
func populateDirectoryRecordFields(drFields *directoryRecordFields, extentLBA, extentOrDataSize uint32, drIDNameToEncode string, targetEntry *node) {
	drFields.ExtendedAttributeRecordLength = 0
	drFields.LocationExtent = extentLBA
	drFields.DataLength = extentOrDataSize
	drFields.RecordingTime = formatRecordingTime(targetEntry.recordedModTime)

	var baseFileFlags byte
	if targetEntry.isDir {
		baseFileFlags |= fileFlagDirectory
	}
	if len(targetEntry.extraExtents) > 0 {
		baseFileFlags |= fileFlagMultiExtent
	}

	finalFileFlags := baseFileFlags
	if drIDNameToEncode != "." && drIDNameToEncode != ".." && drIDNameToEncode != "" && drIDNameToEncode != "\x00" {
		if targetEntry.isHidden {
			finalFileFlags |= fileFlagHidden
		}
	}
	drFields.FileFlags = finalFileFlags
	drFields.FileUnitSize = 0
	drFields.InterleaveGapSize = 0
	drFields.VolumeSequenceNumber = 1
}

// createDirectoryRecordBytes creates the full byte slice for a Directory
// Record describing targetEntry.
func createDirectoryRecordBytes(extentLBA, extentOrDataSize uint32, drIDNameToEncode string, targetEntry *node, isJoliet bool, suspTail []byte) []byte {
	var drFields directoryRecordFields
	populateDirectoryRecordFields(&drFields, extentLBA, extentOrDataSize, drIDNameToEncode, targetEntry)

	isTargetEntryRoot := targetEntry.pathTableDirNum == 1

	var isNameForRootItself bool
	if isTargetEntryRoot {
		if isJoliet && (drIDNameToEncode == "\x00" || drIDNameToEncode == ".") {
			isNameForRootItself = true
		} else if !isJoliet && (drIDNameToEncode == "" || drIDNameToEncode == ".") {
			isNameForRootItself = true
		}
	}

	identifierBytes := getDRIdentifierBytes(drIDNameToEncode, isJoliet, isNameForRootItself)
	return marshalDirectoryRecord(&drFields, identifierBytes, suspTail)
}

// createFileRecordSet builds the directory record(s) describing one file
// child: a single record for ordinary files, or one record per extent
// for files split past the 32-bit data-length limit. Every record but
// the last carries the multi-extent flag and a whole-block data length
// (ECMA-119 6.4.2); readers concatenate the extents back in order.
func createFileRecordSet(child *node, recordName string, isJoliet bool, suspTail []byte) [][]byte {
	extents := child.fileExtents()
	records := make([][]byte, 0, len(extents))

	lba := child.iso9660Sector
	for k, extentSize := range extents {
		tail := suspTail
		if k > 0 {
			tail = nil // SUSP rides the first record of a multi-extent set only
		}
		rec := createDirectoryRecordBytes(lba, uint32(extentSize), recordName, child, isJoliet, tail)
		if k == len(extents)-1 {
			rec[25] &^= fileFlagMultiExtent
		}
		records = append(records, rec)
		lba += sectorsToContainFileBytes(extentSize)
	}
	return records
}

// getDRIdentifierBytes returns the byte representation for a Directory
// Record identifier, handling the root, ".", and ".." special cases.
func getDRIdentifierBytes(name string, isJoliet bool, isIdentifierForRootItself bool) []byte {
	if isJoliet {
		if isIdentifierForRootItself && (name == "\x00" || name == ".") {
			return []byte{0x00}
		}
		if name == "." {
			return encodeUTF16BE(".")
		}
		if name == ".." {
			return encodeUTF16BE("..")
		}
		return encodeUTF16BE(name)
	}

	if name == "." || (isIdentifierForRootItself && name == "") {
		return []byte{0x00}
	}
	if name == ".." {
		return []byte{0x01}
	}
	return []byte(name)
}

// calculateDirectoryRecordSize calculates the total byte length of a
// Directory Record, including identifier padding and any SUSP tail.
func calculateDirectoryRecordSize(identifierBytes []byte, suspTailLen int) int {
	length := drFixedPartSize + len(identifierBytes)
	if length%2 != 0 {
		length++
	}
	return length + suspTailLen
}

// createDirectoryListing generates the byte stream for a directory's
// content (., .., and children DRs), sector-packed so no record straddles
// a sector boundary (see packLengths in plan.go, used identically during
// sizing so the planned and emitted extent sizes always agree).
func (rb *recordBuilder) createDirectoryListing(dirEntryIndex int, isJoliet bool) []byte {
	nodes := rb.nodes
	buffer := new(bytes.Buffer)
	currentDir := nodes[dirEntryIndex]

	var selfLBA, selfExtentSizeBytes uint32
	if isJoliet {
		selfLBA, selfExtentSizeBytes = currentDir.jolietSector, currentDir.jolietSize
	} else {
		selfLBA, selfExtentSizeBytes = currentDir.iso9660Sector, currentDir.iso9660Size
	}

	var selfTail, parentTail []byte
	if !isJoliet && rb.opts.EnableRockRidge {
		selfTail = rb.rrTails[dirEntryIndex]
		parentTail = rb.rrTails[currentDir.parentIndex]
	}

	records := make([][]byte, 0, len(currentDir.children)+2)
	records = append(records, createDirectoryRecordBytes(selfLBA, selfExtentSizeBytes, ".", &currentDir, isJoliet, selfTail))

	parentDir := nodes[currentDir.parentIndex]
	var parentLBA, parentExtentSizeBytes uint32
	if isJoliet {
		parentLBA, parentExtentSizeBytes = parentDir.jolietSector, parentDir.jolietSize
	} else {
		parentLBA, parentExtentSizeBytes = parentDir.iso9660Sector, parentDir.iso9660Size
	}
	records = append(records, createDirectoryRecordBytes(parentLBA, parentExtentSizeBytes, "..", &parentDir, isJoliet, parentTail))

	if len(currentDir.children) > 0 {
		childIdx := append([]int(nil), currentDir.children...)
		sort.Slice(childIdx, func(i, j int) bool {
			if isJoliet {
				return nodes[childIdx[i]].jolietName < nodes[childIdx[j]].jolietName
			}
			return nodes[childIdx[i]].iso9660Name < nodes[childIdx[j]].iso9660Name
		})

		for _, ci := range childIdx {
			child := nodes[ci]
			var childLBA, childSizeOrDataLen uint32
			var childRecordName string

			if child.isDir {
				if isJoliet {
					childLBA, childSizeOrDataLen, childRecordName = child.jolietSector, child.jolietSize, child.jolietName
				} else {
					childLBA, childSizeOrDataLen, childRecordName = child.iso9660Sector, child.iso9660Size, child.iso9660Name
				}
			} else {
				if isJoliet {
					childRecordName = child.jolietName
				} else {
					childRecordName = child.iso9660Name
				}

				var tail []byte
				if !isJoliet && rb.opts.EnableRockRidge {
					tail = rb.rrTails[ci]
				}
				records = append(records, createFileRecordSet(&child, childRecordName, isJoliet, tail)...)
				continue
			}

			var tail []byte
			if !isJoliet && rb.opts.EnableRockRidge {
				tail = rb.rrTails[ci]
			}
			records = append(records, createDirectoryRecordBytes(childLBA, childSizeOrDataLen, childRecordName, &child, isJoliet, tail))
		}
	}

	for _, chunk := range packLengths(records, SectorSize) {
		buffer.Write(chunk)
	}
	return buffer.Bytes()
}
