package iso9660

import (
	"strings"
)

// rockridge.go emits the SUSP (System Use Sharing Protocol) entries Rock
// Ridge attaches to a Directory Record's system-use area: SP (root self-
// record only), RR (a bitmap of which other entries follow), NM (original
// name, restoring what ECMA-119 8.3 mangling discarded), PX (POSIX mode/
// uid/gid), TF (timestamps), and SL (symlink targets). The PX fields use
// the same both-byte-order convention as the directory record integers,
// so this file reuses putBothEndianUint32 rather than a second encoder.
//
// PN (device major/minor) is not emitted: FileRecord carries no device
// number, so there is nothing to encode. When a node's full entry set
// cannot fit in the slack a 255-byte directory record leaves, the record
// carries a CE entry instead and the entries move to a continuation area
// the planner reserves as its own extent.

const (
	rrFlagPX = 1 << 0
	rrFlagPN = 1 << 1
	rrFlagSL = 1 << 2
	rrFlagNM = 1 << 3
	rrFlagTF = 1 << 7
)

func suspEntry(sig string, version byte, data []byte) []byte {
	length := byte(4 + len(data))
	buf := make([]byte, 0, length)
	buf = append(buf, sig[0], sig[1], length, version)
	buf = append(buf, data...)
	return buf
}

// buildSPEntry builds the root-only SP entry announcing SUSP is in use
// (SUSP 5.3): "SP", len 7, version 1, check bytes 0xBE 0xEF, 0 bytes skipped.
func buildSPEntry() []byte {
	return suspEntry("SP", 1, []byte{0xBE, 0xEF, 0x00})
}

// buildRREntry builds the RR entry announcing which Rock Ridge entries
// are present for this record (RRIP 4.3 legacy "RR" signature, still
// widely emitted alongside the ER/extension mechanism for compatibility).
func buildRREntry(flags byte) []byte {
	return suspEntry("RR", 1, []byte{flags})
}

// buildNMEntry builds an NM entry carrying the original (unmangled) name.
// No continuation support: names are truncated to what fits a single
// entry's 8-bit length field (250 bytes of name data after the 4-byte
// header and the flags byte).
func buildNMEntry(name string) []byte {
	const maxNameBytes = 250
	if len(name) > maxNameBytes {
		name = name[:maxNameBytes]
	}
	data := append([]byte{0x00}, []byte(name)...)
	return suspEntry("NM", 1, data)
}

// buildPXEntry builds a PX entry with mode, link count, uid, gid, and
// inode serial number, each a both-byte-order 32-bit field (RRIP 4.1.1).
func buildPXEntry(mode uint32, links, uid, gid, serial uint32) []byte {
	var data []byte
	data = putBothEndianUint32(data, mode)
	data = putBothEndianUint32(data, links)
	data = putBothEndianUint32(data, uid)
	data = putBothEndianUint32(data, gid)
	data = putBothEndianUint32(data, serial)
	return suspEntry("PX", 1, data)
}

// buildTFEntry builds a TF entry carrying the modification timestamp
// (RRIP 4.1.6), using the same 7-byte short form as a Directory Record's
// RecordingTime field.
func buildTFEntry(modTime [7]byte) []byte {
	const tfFlagModify = 1 << 1
	data := append([]byte{tfFlagModify}, modTime[:]...)
	return suspEntry("TF", 1, data)
}

// buildSLEntry builds an SL entry describing a symlink target, splitting
// it into '/'-separated components (RRIP 4.1.3). Each component is
// preceded by a 1-byte flags/length pair; "." and ".." targets use the
// CURRENT/PARENT component flags instead of literal bytes.
func buildSLEntry(target string) []byte {
	const (
		slFlagContinue = 1 << 0
		slFlagCurrent  = 1 << 1
		slFlagParent   = 1 << 2
		slFlagRoot     = 1 << 3
	)
	data := []byte{0x00} // SL entry flags: no continuation
	parts := strings.Split(strings.TrimPrefix(target, "/"), "/")
	if strings.HasPrefix(target, "/") {
		data = append(data, slFlagRoot, 0x00)
	}
	for _, p := range parts {
		switch p {
		case ".":
			data = append(data, slFlagCurrent, 0x00)
		case "..":
			data = append(data, slFlagParent, 0x00)
		default:
			data = append(data, 0x00, byte(len(p)))
			data = append(data, []byte(p)...)
		}
	}
	if len(data) > 251 {
		data = data[:251] // the entry length field is a single byte
	}
	return suspEntry("SL", 1, data)
}

// rockRidgeBody builds the RR, PX, TF, NM, and SL entries for n, in the
// order RRIP conventionally emits them.
func rockRidgeBody(n *node, serial uint32) []byte {
	var flags byte
	var body []byte

	flags |= rrFlagPX
	body = append(body, buildPXEntry(posixModeFor(n), 1, 0, 0, serial)...)

	flags |= rrFlagTF
	body = append(body, buildTFEntry(formatRecordingTime(n.recordedModTime))...)

	if n.originalName != "" && n.originalName != "\x00" {
		flags |= rrFlagNM
		body = append(body, buildNMEntry(n.originalName)...)
	}

	if n.linkTarget != "" {
		flags |= rrFlagSL
		body = append(body, buildSLEntry(n.linkTarget)...)
	}

	return append(buildRREntry(flags), body...)
}

// rockRidgeTailFor builds the complete SUSP system-use area for n as it
// would appear with no continuation: an SP entry for the root, then the
// RR/PX/TF/NM/SL body.
func rockRidgeTailFor(n *node, includeSP bool, serial uint32) []byte {
	var tail []byte
	if includeSP {
		tail = append(tail, buildSPEntry()...)
	}
	return append(tail, rockRidgeBody(n, serial)...)
}

// ceEntryLen is the fixed size of a CE entry: a 4-byte SUSP header plus
// three both-byte-order uint32 fields (block, offset, length).
const ceEntryLen = 28

// buildCEEntry builds a CE continuation entry (SUSP 5.1) forwarding the
// rest of a record's system-use area to a continuation block.
func buildCEEntry(blockLBA, offset, length uint32) []byte {
	var data []byte
	data = putBothEndianUint32(data, blockLBA)
	data = putBothEndianUint32(data, offset)
	data = putBothEndianUint32(data, length)
	return suspEntry("CE", 1, data)
}

type contLocation struct {
	block  int // index into rockRidgePlan.blocks
	offset uint32
	length uint32
}

// rockRidgePlan is the planner's SUSP output: an inline tail per node,
// and, for nodes whose full entry set cannot fit a 255-byte directory
// record, continuation bytes packed into dedicated sectors the layout
// reserves as the Rock Ridge continuation extent.
type rockRidgePlan struct {
	inlineTails map[int][]byte
	blocks      [][]byte // continuation area, one SectorSize slice each
	refs        map[int]contLocation
}

// inlineBudgetFor is the system-use space left in the widest record that
// carries n's tail: the one in its parent's listing, whose identifier is
// the mangled name. The "." and ".." placements have one-byte
// identifiers, so anything fitting this budget fits everywhere.
func inlineBudgetFor(n *node, isRoot bool) int {
	id := getDRIdentifierBytes(n.iso9660Name, false, isRoot)
	return 255 - calculateDirectoryRecordSize(id, 0)
}

// planRockRidge computes every node's SUSP tail, splitting overlong ones
// into an inline SP/CE stub plus a continuation body. Continuation
// bodies never cross a sector boundary, since CE addresses them as a
// block plus an intra-block offset. CE block fields are written as zero
// here; materialize fills them in once the continuation extent's LBA is
// known. Mangled names must already be assigned.
func planRockRidge(nodes []node) *rockRidgePlan {
	plan := &rockRidgePlan{
		inlineTails: make(map[int][]byte, len(nodes)),
		refs:        make(map[int]contLocation),
	}

	var cur []byte
	flush := func() {
		sector := make([]byte, SectorSize)
		copy(sector, cur)
		plan.blocks = append(plan.blocks, sector)
		cur = nil
	}

	for i := range nodes {
		isRoot := i == 0
		serial := uint32(i + 1)
		body := rockRidgeBody(&nodes[i], serial)

		var prefix []byte
		if isRoot {
			prefix = buildSPEntry()
		}

		if len(prefix)+len(body) <= inlineBudgetFor(&nodes[i], isRoot) {
			plan.inlineTails[i] = append(prefix, body...)
			continue
		}

		if len(cur)+len(body) > SectorSize {
			flush()
		}
		ref := contLocation{block: len(plan.blocks), offset: uint32(len(cur)), length: uint32(len(body))}
		cur = append(cur, body...)
		plan.refs[i] = ref
		plan.inlineTails[i] = append(prefix, buildCEEntry(0, ref.offset, ref.length)...)
	}
	if len(cur) > 0 {
		flush()
	}
	return plan
}

// materialize rewrites every CE-bearing inline tail with the continuation
// extent's final LBA. Tail lengths do not change, so extent sizing done
// before this call stays valid.
func (p *rockRidgePlan) materialize(baseLBA uint32) {
	for i, ref := range p.refs {
		tail := p.inlineTails[i]
		ce := buildCEEntry(baseLBA+uint32(ref.block), ref.offset, ref.length)
		copy(tail[len(tail)-ceEntryLen:], ce)
	}
}

// posixModeFor returns the POSIX mode word PX should encode: the node's
// recorded permission bits, with the appropriate S_IFDIR/S_IFLNK/S_IFREG
// type bits added since FileRecord.Mode carries only fs.FileMode's
// permission bits plus type flags, not a raw POSIX mode word.
func posixModeFor(n *node) uint32 {
	const (
		sIFDIR = 0040000
		sIFLNK = 0120000
		sIFREG = 0100000
	)
	mode := n.mode & 0777
	switch {
	case n.isDir:
		mode |= sIFDIR
	case n.linkTarget != "":
		mode |= sIFLNK
	default:
		mode |= sIFREG
	}
	return mode
}
