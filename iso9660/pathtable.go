package iso9660

import (
	"bytes"
	"encoding/binary"
	"sort"
)

// marshalPathTableRecord converts pathTableRecordFields and an identifier
// into a Path Table Record byte slice (ECMA-119 9.4).
func marshalPathTableRecord(fields *pathTableRecordFields, identifier []byte, useBigEndian bool) []byte {
	identifierLen := byte(len(identifier))
	recordFinalLen := ptRecFixedPartSize + int(identifierLen)
	if len(identifier)%2 != 0 {
		recordFinalLen++
	}

	record := make([]byte, recordFinalLen)
	record[0] = identifierLen
	record[1] = fields.ExtendedAttributeRecordLength

	order := binary.ByteOrder(binary.LittleEndian)
	if useBigEndian {
		order = binary.BigEndian
	}
	order.PutUint32(record[2:6], fields.LocationOfExtent)
	order.PutUint16(record[6:8], fields.ParentDirectoryNumber)
	copy(record[8:], identifier)
	return record
}

// pathTableDirs returns every directory node eligible for path-table
// inclusion (pathTableDirNum > 0; excludes non-directories).
func pathTableDirs(nodes []node) []int {
	var dirs []int
	for i, n := range nodes {
		if n.isDir && n.pathTableDirNum > 0 {
			dirs = append(dirs, i)
		}
	}
	return dirs
}

// createPathTable generates the bytes for a Path Table (L-Type or M-Type).
// The two types are the same logical table: record order is the BFS
// numbering from tree.go (assignPathTableNumbersBFS, itself derived from
// ECMA-119 name order within each parent), shared by the ECMA-119 and
// Joliet tables alike; only the multi-byte integer fields differ in
// endianness between the L and M copies.
func createPathTable(nodes []node, isJoliet bool, useBigEndian bool) []byte {
	buffer := new(bytes.Buffer)
	dirs := pathTableDirs(nodes)

	sort.Slice(dirs, func(i, j int) bool {
		return nodes[dirs[i]].pathTableDirNum < nodes[dirs[j]].pathTableDirNum
	})

	for _, idx := range dirs {
		n := &nodes[idx]
		var ptFields pathTableRecordFields
		var identifierBytes []byte

		if n.pathTableDirNum == 1 {
			identifierBytes = []byte{0x00}
			ptFields.ParentDirectoryNumber = 1
		} else {
			if isJoliet {
				identifierBytes = encodeUTF16BE(n.jolietName)
			} else {
				identifierBytes = []byte(n.iso9660Name)
			}
			ptFields.ParentDirectoryNumber = nodes[n.parentIndex].pathTableDirNum
		}

		if isJoliet {
			ptFields.LocationOfExtent = n.jolietSector
		} else {
			ptFields.LocationOfExtent = n.iso9660Sector
		}

		buffer.Write(marshalPathTableRecord(&ptFields, identifierBytes, useBigEndian))
	}
	return buffer.Bytes()
}

// calculatePathTableTotalBytes calculates the total unpadded byte length of
// a path table, used to size its extent before content LBAs are assigned.
func calculatePathTableTotalBytes(nodes []node, isJoliet bool) int {
	totalBytes := 0
	for _, idx := range pathTableDirs(nodes) {
		n := &nodes[idx]
		var identifierBytes []byte
		if n.pathTableDirNum == 1 {
			identifierBytes = []byte{0x00}
		} else if isJoliet {
			identifierBytes = encodeUTF16BE(n.jolietName)
		} else {
			identifierBytes = []byte(n.iso9660Name)
		}

		recordFinalLen := ptRecFixedPartSize + len(identifierBytes)
		if len(identifierBytes)%2 != 0 {
			recordFinalLen++
		}
		totalBytes += recordFinalLen
	}
	return totalBytes
}
