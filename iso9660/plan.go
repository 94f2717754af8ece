package iso9660

import (
	"strings"
)

// ImagePlan is the immutable output of planLayout: every LBA, extent
// size, and cross-reference the writer needs is computed here first, so
// the emission pass never has to guess a forward reference.
type ImagePlan struct {
	nodes []node
	opts  *Options

	totalSectors uint32

	lbaPvdPathTableL, lbaPvdPathTableM   uint32
	lbaPvdPathTableL2, lbaPvdPathTableM2 uint32
	lbaSvdPathTableL, lbaSvdPathTableM   uint32
	lbaSvdPathTableL2, lbaSvdPathTableM2 uint32

	pvdPathTableLData, pvdPathTableMData []byte
	svdPathTableLData, svdPathTableMData []byte

	pvdRootDirExtentSize uint32
	svdRootDirExtentSize uint32

	bootCatalogLBA   uint32 // 0 if El Torito is disabled
	bootCatalogBytes []byte

	rrTails           map[int][]byte
	rrPlan            *rockRidgePlan
	rrContinuationLBA uint32 // 0 if no continuation extent was needed

	vdStartLBA uint32 // LBA of the PVD (always SystemAreaNumSectors)

	lbaPVD        uint32
	lbaBootRecord uint32 // 0 if El Torito is disabled
	lbaSVD        uint32 // 0 if Joliet is disabled
	lbaTerminator uint32
}

// packLengths groups a sequence of already-marshaled records into
// sector-sized chunks, padding the remainder of each sector with zero
// bytes whenever the next record would straddle the boundary (ECMA-119
// 6.8.1: "a Directory Record shall not specify more than one Logical
// Block"). Used identically by the sizing pass and the emission pass, so
// a directory's planned extent size and its actually-written size always
// agree. Summing record lengths and rounding up would undercount whenever
// a record is pushed past a boundary.
func packLengths(records [][]byte, sectorSize int) [][]byte {
	var sectors [][]byte
	current := make([]byte, 0, sectorSize)

	flush := func() {
		padded := make([]byte, sectorSize)
		copy(padded, current)
		sectors = append(sectors, padded)
		current = current[:0]
	}

	for _, rec := range records {
		if len(rec) > sectorSize {
			// Cannot happen for any directory record this package emits
			// (identifier + SUSP tail are bounded well under 2048 bytes),
			// but guard rather than silently corrupt the image.
			continue
		}
		if len(current)+len(rec) > sectorSize {
			flush()
		}
		current = append(current, rec...)
	}
	if len(current) > 0 {
		flush()
	}
	if len(sectors) == 0 {
		flush()
	}
	return sectors
}

// planLayout performs the whole sizing pass over a tree buildTree has
// already mangled and ordered: compute Rock Ridge tails, size directory
// extents, place path tables, reserve the boot catalog, and assign
// every content LBA in canonical order (ECMA-119 directories, then file
// data, then Joliet directories, then the Rock Ridge continuation
// extent).
func planLayout(nodes []node, opts *Options, bootEntries []BootEntry) (*ImagePlan, error) {
	if opts.Strictness == Strict {
		if err := validateStrictNames(nodes, opts); err != nil {
			return nil, err
		}
	}

	var rrTails map[int][]byte
	var rrPlan *rockRidgePlan
	if opts.EnableRockRidge {
		rrPlan = planRockRidge(nodes)
		rrTails = rrPlan.inlineTails
	}

	sizeDirectoryExtents(nodes, opts, rrTails)

	plan := &ImagePlan{
		nodes:                nodes,
		opts:                 opts,
		vdStartLBA:           SystemAreaNumSectors,
		pvdRootDirExtentSize: nodes[0].iso9660Size,
		svdRootDirExtentSize: nodes[0].jolietSize,
		rrTails:              rrTails,
		rrPlan:               rrPlan,
	}

	bootEnabled := len(bootEntries) > 0

	vdLBA := uint32(SystemAreaNumSectors)
	plan.lbaPVD = vdLBA
	vdLBA++
	if bootEnabled {
		plan.lbaBootRecord = vdLBA
		vdLBA++
	}
	if opts.EnableJoliet {
		plan.lbaSVD = vdLBA
		vdLBA++
	}
	plan.lbaTerminator = vdLBA
	vdLBA++

	currentLBA := uint64(vdLBA)
	currentLBA = plan.determinePathTableLBAs(currentLBA)

	if bootEnabled {
		plan.bootCatalogLBA = uint32(currentLBA)
		currentLBA++
	}

	currentLBA = plan.assignContentLBAs(currentLBA)

	if rrPlan != nil && len(rrPlan.blocks) > 0 {
		plan.rrContinuationLBA = uint32(currentLBA)
		currentLBA += uint64(len(rrPlan.blocks))
	}

	total := currentLBA + 1 // trailing padding sector
	if total > (1<<32)-1 {
		return nil, newError(KindPlanOverflow, "image exceeds 2^32-1 sectors", nil)
	}
	plan.totalSectors = uint32(total)

	if plan.rrContinuationLBA != 0 {
		rrPlan.materialize(plan.rrContinuationLBA)
	}

	plan.pvdPathTableLData = createPathTable(nodes, false, false)
	plan.pvdPathTableMData = createPathTable(nodes, false, true)
	plan.svdPathTableLData = createPathTable(nodes, true, false)
	plan.svdPathTableMData = createPathTable(nodes, true, true)

	if bootEnabled {
		resolved := make([]resolvedBootEntry, len(bootEntries))
		for i, be := range bootEntries {
			idx, err := findNodeByPath(nodes, be.BootImagePath)
			if err != nil {
				return nil, err
			}
			resolved[i] = resolvedBootEntry{
				BootEntry: be,
				lba:       nodes[idx].iso9660Sector,
				size:      nodes[idx].size,
			}
		}
		catalog, err := buildBootCatalog(resolved)
		if err != nil {
			return nil, err
		}
		plan.bootCatalogBytes = catalog
	}

	return plan, nil
}

// assignMangledNames fills in iso9660Name/jolietName for every node,
// mangling each sibling set independently. Called once, from buildTree,
// before the canonical child order is established: collision suffixes
// depend on the sibling processing order, so re-running it after the
// children have been re-sorted could hand the unsuffixed name to a
// different node.
func assignMangledNames(nodes []node) {
	nodes[0].iso9660Name = ""
	nodes[0].jolietName = "\x00"

	// group by parent, mangle each sibling set independently.
	childrenByParent := make(map[int][]int)
	for i := range nodes {
		if i == 0 {
			continue
		}
		p := nodes[i].parentIndex
		childrenByParent[p] = append(childrenByParent[p], i)
	}

	for _, siblings := range childrenByParent {
		dirIdx, fileIdx := []int{}, []int{}
		for _, i := range siblings {
			if nodes[i].isDir {
				dirIdx = append(dirIdx, i)
			} else {
				fileIdx = append(fileIdx, i)
			}
		}
		isoDirNames := mangleSiblingNames(len(dirIdx), func(k int) string {
			return sanitizeISO9660Name(nodes[dirIdx[k]].originalName, true)
		})
		for k, idx := range dirIdx {
			nodes[idx].iso9660Name = isoDirNames[k]
			nodes[idx].jolietName = truncateJolietName(nodes[idx].originalName)
		}

		isoFileNames := mangleSiblingNames(len(fileIdx), func(k int) string {
			return sanitizeISO9660Name(nodes[fileIdx[k]].originalName, false) + ";1"
		})
		for k, idx := range fileIdx {
			nodes[idx].iso9660Name = isoFileNames[k]
			nodes[idx].jolietName = truncateJolietName(nodes[idx].originalName)
		}
	}
}

// sizeDirectoryExtents computes each directory's sector-aligned listing
// size in both namespaces, using placeholder LBA/data-length values. DR
// size never depends on the magnitude of those fields, only on the
// identifier and any SUSP tail length, so sizing is LBA-independent and
// therefore safe to run before LBA assignment.
func sizeDirectoryExtents(nodes []node, opts *Options, rrTails map[int][]byte) {
	rb := &recordBuilder{nodes: nodes, opts: opts, rrTails: rrTails}
	for i := range nodes {
		if !nodes[i].isDir {
			continue
		}
		isoListing := rb.createDirectoryListing(i, false)
		nodes[i].iso9660Size = uint32(len(isoListing))
		if opts.EnableJoliet {
			jolietListing := rb.createDirectoryListing(i, true)
			nodes[i].jolietSize = uint32(len(jolietListing))
		}
	}
	// cached per-entry DR sizes, for callers that need a single record's
	// length without re-marshaling it.
	for i := range nodes {
		isRoot := nodes[i].pathTableDirNum == 1
		idBytes := getDRIdentifierBytes(nodes[i].iso9660Name, false, isRoot)
		var tail []byte
		if opts.EnableRockRidge {
			tail = rrTails[i]
		}
		nodes[i].actualISO9660DrSize = calculateDirectoryRecordSize(idBytes, len(tail))
		jBytes := getDRIdentifierBytes(nodes[i].jolietName, true, isRoot)
		nodes[i].actualJolietDrSize = calculateDirectoryRecordSize(jBytes, 0)
	}
}

// determinePathTableLBAs reserves sectors for all path table copies. The
// cursor is 64-bit so an over-large input is detected by the final size
// check instead of silently wrapping.
func (plan *ImagePlan) determinePathTableLBAs(startLBA uint64) uint64 {
	nodes := plan.nodes
	currentLBA := startLBA

	pvdPtLBytes := calculatePathTableTotalBytes(nodes, false)
	numSecPvd := uint64(sectorsToContainBytes(pvdPtLBytes))

	plan.lbaPvdPathTableL = uint32(currentLBA)
	currentLBA += numSecPvd
	plan.lbaPvdPathTableM = uint32(currentLBA)
	currentLBA += numSecPvd
	plan.lbaPvdPathTableL2 = uint32(currentLBA)
	currentLBA += numSecPvd
	plan.lbaPvdPathTableM2 = uint32(currentLBA)
	currentLBA += numSecPvd

	if plan.opts.EnableJoliet {
		svdPtLBytes := calculatePathTableTotalBytes(nodes, true)
		numSecSvd := uint64(sectorsToContainBytes(svdPtLBytes))

		plan.lbaSvdPathTableL = uint32(currentLBA)
		currentLBA += numSecSvd
		plan.lbaSvdPathTableM = uint32(currentLBA)
		currentLBA += numSecSvd
		plan.lbaSvdPathTableL2 = uint32(currentLBA)
		currentLBA += numSecSvd
		plan.lbaSvdPathTableM2 = uint32(currentLBA)
		currentLBA += numSecSvd
	}

	return currentLBA
}

// assignContentLBAs assigns LBAs in the canonical order: ECMA-119
// directory extents, then file data, then Joliet directory extents.
func (plan *ImagePlan) assignContentLBAs(startLBA uint64) uint64 {
	nodes := plan.nodes
	currentLBA := startLBA

	for i := range nodes {
		if nodes[i].isDir {
			nodes[i].iso9660Sector = uint32(currentLBA)
			currentLBA += uint64(nodes[i].iso9660Size / SectorSize)
		}
	}

	for i := range nodes {
		if !nodes[i].isDir {
			nodes[i].iso9660Sector = uint32(currentLBA)
			nodes[i].jolietSector = uint32(currentLBA)
			for _, extentSize := range nodes[i].fileExtents() {
				currentLBA += uint64(sectorsToContainFileBytes(extentSize))
			}
		}
	}

	if plan.opts.EnableJoliet {
		for i := range nodes {
			if nodes[i].isDir {
				nodes[i].jolietSector = uint32(currentLBA)
				currentLBA += uint64(nodes[i].jolietSize / SectorSize)
			}
		}
	}

	return currentLBA
}

// validateStrictNames rejects any name the active namespaces would have
// to alter: under Strict the caller gets an error instead of a silent
// truncation or character substitution. Mangled names must already be
// assigned. Sibling collisions cannot survive this check, since every
// accepted name is carried through unchanged up to case.
func validateStrictNames(nodes []node, opts *Options) error {
	for i := 1; i < len(nodes); i++ {
		n := &nodes[i]
		want := sanitizeISO9660Name(n.originalName, n.isDir)
		got := strings.TrimSuffix(n.iso9660Name, ";1")
		if want != n.originalName || got != want {
			return newError(KindInvalidInput,
				"name '"+n.originalName+"' is not a conformant ECMA-119 identifier under Strict", nil)
		}
		if opts.EnableJoliet && len([]rune(n.originalName)) > JolietMaxFilenameChars {
			return newError(KindInvalidInput,
				"name '"+n.originalName+"' exceeds the Joliet identifier limit under Strict", nil)
		}
	}
	return nil
}

func findNodeByPath(nodes []node, path string) (int, error) {
	for i, n := range nodes {
		if n.isoPath == "/"+trimSlashes(path) {
			return i, nil
		}
	}
	return 0, newError(KindBootCatalogError, "boot image path '"+path+"' not found among image files", nil)
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
