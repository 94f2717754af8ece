package iso9660

import (
	"io"
	"sort"
	"strings"
	"time"
)

// node is the in-memory directory-tree representation built from a
// FileInput sequence. A node is never populated by walking a host
// filesystem directly; that traversal lives in the hostfs package, which
// feeds the tree through FileInput like any other caller.
type node struct {
	originalName string // raw name as it appeared in the FileInput path
	isoPath      string // '/'-separated path relative to the image root

	isDir       bool
	level       int
	parentIndex int
	children    []int

	iso9660Name string
	jolietName  string

	size uint64 // file payload size in bytes; unused for directories

	recordedModTime time.Time

	open func() (FileSource, error)

	// iso9660Size/jolietSize: for directories, the sector-aligned byte
	// size of their directory listing extent in each namespace.
	iso9660Size uint32
	jolietSize  uint32

	iso9660Sector uint32 // LBA of data (files) or directory extent
	jolietSector  uint32

	actualISO9660DrSize int
	actualJolietDrSize  int

	pathTableDirNum uint16
	isHidden        bool

	// Rock Ridge metadata, present only when Options.EnableRockRidge.
	mode       uint32 // POSIX mode bits, 0 if unknown
	linkTarget string // symlink target, empty if not a symlink
	hasRRMeta  bool

	// extraExtents records multi-extent splitting for files whose size
	// exceeds MaxFileSize: the sizes, in bytes, of extents 2..N. The
	// first extent's size is size minus their sum.
	extraExtents []uint64
}

// buildTree consumes every record from in and assembles the node slice,
// index 0 always being the synthetic root. Children end up sorted by
// mangled ECMA-119 name at each level (after a first sort by original
// name that fixes the order mangling sees), so scan order never affects
// the resulting tree shape.
func buildTree(in FileInput, strictness Strictness) ([]node, error) {
	nodes := []node{{
		originalName: "\x00",
		isoPath:      "/",
		isDir:        true,
		level:        0,
		parentIndex:  0,
	}}

	dirIndex := map[string]int{"": 0}

	ensureDir := func(path string) (int, error) {
		if idx, ok := dirIndex[path]; ok {
			return idx, nil
		}
		parent := ""
		name := path
		if slash := strings.LastIndex(path, "/"); slash != -1 {
			parent = path[:slash]
			name = path[slash+1:]
		}
		parentIdx, err := ensureDirChain(path, parent, dirIndex, &nodes)
		if err != nil {
			return 0, err
		}
		n := node{
			originalName: name,
			isoPath:      "/" + path,
			isDir:        true,
			level:        nodes[parentIdx].level + 1,
			parentIndex:  parentIdx,
		}
		nodes = append(nodes, n)
		idx := len(nodes) - 1
		nodes[parentIdx].children = append(nodes[parentIdx].children, idx)
		dirIndex[path] = idx
		return idx, nil
	}

	for {
		rec, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, newError(KindIoError, "reading FileInput sequence", err)
		}
		cleanPath := strings.Trim(strings.TrimSpace(rec.Path), "/")
		if cleanPath == "" {
			continue
		}

		if rec.IsDir {
			if _, err := ensureDir(cleanPath); err != nil {
				return nil, err
			}
			continue
		}

		parent := ""
		name := cleanPath
		if slash := strings.LastIndex(cleanPath, "/"); slash != -1 {
			parent = cleanPath[:slash]
			name = cleanPath[slash+1:]
		}
		parentIdx, err := ensureDir(parent)
		if err != nil {
			return nil, err
		}

		if rec.Size > int64(MaxFileSize) && strictness == Strict {
			return nil, newError(KindInvalidInput, "file '"+cleanPath+"' exceeds 4 GiB under Strict", nil)
		}

		fn := node{
			originalName:    name,
			isoPath:         "/" + cleanPath,
			isDir:           false,
			level:           nodes[parentIdx].level + 1,
			parentIndex:     parentIdx,
			size:            uint64(rec.Size),
			recordedModTime: rec.ModTime,
			open:            rec.Open,
			mode:            uint32(rec.Mode.Perm()),
			linkTarget:      rec.LinkTarget,
			hasRRMeta:       rec.Mode != 0 || rec.LinkTarget != "",
		}
		if fn.size > uint64(MaxFileSize) {
			remaining := fn.size - maxExtentBytes // first extent stays on the node itself
			for remaining > maxExtentBytes {
				fn.extraExtents = append(fn.extraExtents, uint64(maxExtentBytes))
				remaining -= maxExtentBytes
			}
			fn.extraExtents = append(fn.extraExtents, remaining)
		}
		nodes = append(nodes, fn)
		idx := len(nodes) - 1
		nodes[parentIdx].children = append(nodes[parentIdx].children, idx)
	}

	// Raw-name order first, so mangling sees a deterministic sibling
	// sequence; then the canonical ECMA-119-name order, which drives both
	// directory record order and path-table numbering.
	sortChildrenByName(nodes)
	assignMangledNames(nodes)
	sortChildrenByISO9660Name(nodes)
	assignPathTableNumbersBFS(nodes)
	return nodes, nil
}

// ensureDirChain walks parent path components, creating intermediate
// directory nodes (e.g. "a/b/c.txt" implies directories "a" and "a/b")
// before the leaf they contain is created.
func ensureDirChain(fullPath, parentPath string, dirIndex map[string]int, nodes *[]node) (int, error) {
	if parentPath == "" {
		return 0, nil
	}
	if idx, ok := dirIndex[parentPath]; ok {
		return idx, nil
	}
	grandParent := ""
	name := parentPath
	if slash := strings.LastIndex(parentPath, "/"); slash != -1 {
		grandParent = parentPath[:slash]
		name = parentPath[slash+1:]
	}
	gpIdx, err := ensureDirChain(parentPath, grandParent, dirIndex, nodes)
	if err != nil {
		return 0, err
	}
	n := node{
		originalName: name,
		isoPath:      "/" + parentPath,
		isDir:        true,
		level:        (*nodes)[gpIdx].level + 1,
		parentIndex:  gpIdx,
	}
	*nodes = append(*nodes, n)
	idx := len(*nodes) - 1
	(*nodes)[gpIdx].children = append((*nodes)[gpIdx].children, idx)
	dirIndex[parentPath] = idx
	return idx, nil
}

// fileExtents returns the byte size of every extent of n, in on-disk
// order. Files at or under MaxFileSize have exactly one.
func (n *node) fileExtents() []uint64 {
	if len(n.extraExtents) == 0 {
		return []uint64{n.size}
	}
	first := n.size
	for _, e := range n.extraExtents {
		first -= e
	}
	return append([]uint64{first}, n.extraExtents...)
}

// sortChildrenByName orders each node's children by original name. This
// is only the input order for mangling's collision tie-breaks; the
// canonical sibling order is established afterwards from the mangled
// names (sortChildrenByISO9660Name).
func sortChildrenByName(nodes []node) {
	for i := range nodes {
		children := nodes[i].children
		sort.Slice(children, func(a, b int) bool {
			return nodes[children[a]].originalName < nodes[children[b]].originalName
		})
	}
}

// sortChildrenByISO9660Name re-orders each directory's children into
// byte-wise sorted order of their mangled ECMA-119 name. This ordering
// is a hard invariant: it is the record order within each directory
// extent and the order path-table numbers are handed out in.
func sortChildrenByISO9660Name(nodes []node) {
	for i := range nodes {
		children := nodes[i].children
		sort.Slice(children, func(a, b int) bool {
			return nodes[children[a]].iso9660Name < nodes[children[b]].iso9660Name
		})
	}
}

// assignPathTableNumbersBFS numbers every directory node in breadth-first
// order, starting at 1 for the root (ECMA-119 9.4.3): parents before
// children, same-parent siblings in their ECMA-119 name order (children
// must already be sorted by sortChildrenByISO9660Name). This is the only
// place in the whole layout where BFS order matters.
func assignPathTableNumbersBFS(nodes []node) {
	if len(nodes) == 0 {
		return
	}
	nodes[0].pathTableDirNum = 1
	next := uint16(2)
	queue := []int{0}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		for _, childIdx := range nodes[idx].children {
			if !nodes[childIdx].isDir {
				continue
			}
			nodes[childIdx].pathTableDirNum = next
			next++
			queue = append(queue, childIdx)
		}
	}
}

// markHidden marks every node whose original path matches one of names as
// hidden (ECMA-119 File Flags bit 0).
func markHidden(nodes []node, names ...string) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.Trim(n, "/")] = true
	}
	for i := range nodes {
		if want[strings.Trim(nodes[i].isoPath, "/")] {
			nodes[i].isHidden = true
		}
	}
}
