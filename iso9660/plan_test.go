package iso9660

import "testing"

func planFixtureNodes(t *testing.T) []node {
	t.Helper()
	nodes, err := buildTree(NewSliceFileInput([]FileRecord{
		{Path: "a.txt", Size: 10},
		{Path: "dir/b.txt", Size: 20},
	}), Default)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	return nodes
}

func TestPlanLayoutVolumeDescriptorsAreSequentialAfterSystemArea(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	nodes := planFixtureNodes(t)

	plan, err := planLayout(nodes, opts, nil)
	if err != nil {
		t.Fatalf("planLayout: %v", err)
	}

	if plan.lbaPVD != SystemAreaNumSectors {
		t.Fatalf("expected PVD right after the system area at LBA %d, got %d", SystemAreaNumSectors, plan.lbaPVD)
	}
	if plan.lbaBootRecord != 0 {
		t.Fatalf("expected no Boot Record Descriptor, got LBA %d", plan.lbaBootRecord)
	}
	if plan.lbaSVD != 0 {
		t.Fatalf("expected no SVD with Joliet disabled, got LBA %d", plan.lbaSVD)
	}
	if plan.lbaTerminator != plan.lbaPVD+1 {
		t.Fatalf("expected Terminator immediately after PVD, got PVD=%d Terminator=%d", plan.lbaPVD, plan.lbaTerminator)
	}
}

func TestPlanLayoutJolietInsertsSVDBeforeTerminator(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = true
	nodes := planFixtureNodes(t)

	plan, err := planLayout(nodes, opts, nil)
	if err != nil {
		t.Fatalf("planLayout: %v", err)
	}

	if plan.lbaSVD != plan.lbaPVD+1 {
		t.Fatalf("expected SVD right after PVD, got PVD=%d SVD=%d", plan.lbaPVD, plan.lbaSVD)
	}
	if plan.lbaTerminator != plan.lbaSVD+1 {
		t.Fatalf("expected Terminator right after SVD, got SVD=%d Terminator=%d", plan.lbaSVD, plan.lbaTerminator)
	}
}

func TestPlanLayoutBootRecordPrecedesSVD(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = true
	nodes, err := buildTree(NewSliceFileInput([]FileRecord{
		{Path: "boot.img", Size: 512},
	}), Default)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}

	bootEntries := []BootEntry{{
		Platform:      BootPlatformX86,
		Media:         BootMediaNoEmulation,
		BootImagePath: "boot.img",
	}}

	plan, err := planLayout(nodes, opts, bootEntries)
	if err != nil {
		t.Fatalf("planLayout: %v", err)
	}

	if plan.lbaBootRecord != plan.lbaPVD+1 {
		t.Fatalf("expected Boot Record Descriptor right after PVD, got PVD=%d BootRecord=%d", plan.lbaPVD, plan.lbaBootRecord)
	}
	if plan.lbaSVD != plan.lbaBootRecord+1 {
		t.Fatalf("expected SVD right after the Boot Record Descriptor, got BootRecord=%d SVD=%d", plan.lbaBootRecord, plan.lbaSVD)
	}
	if plan.bootCatalogLBA == 0 {
		t.Fatalf("expected a non-zero boot catalog LBA")
	}
}

func TestPlanLayoutDirectoryExtentsArePackedIntoWholeSectors(t *testing.T) {
	opts := DefaultOptions()
	nodes := planFixtureNodes(t)

	plan, err := planLayout(nodes, opts, nil)
	if err != nil {
		t.Fatalf("planLayout: %v", err)
	}

	for _, n := range plan.nodes {
		if !n.isDir {
			continue
		}
		if n.iso9660Size%SectorSize != 0 {
			t.Fatalf("directory %q extent size %d is not sector-aligned", n.isoPath, n.iso9660Size)
		}
	}
}

func TestPlanLayoutRejectsUnknownBootImagePath(t *testing.T) {
	opts := DefaultOptions()
	nodes := planFixtureNodes(t)

	_, err := planLayout(nodes, opts, []BootEntry{{BootImagePath: "does/not/exist"}})
	if !IsKind(err, KindBootCatalogError) {
		t.Fatalf("expected KindBootCatalogError, got %v", err)
	}
}

func TestPackLengthsNeverSplitsARecordAcrossSectors(t *testing.T) {
	sectorSize := 16
	records := [][]byte{
		make([]byte, 10),
		make([]byte, 10), // forces a new sector: 10+10 > 16
		make([]byte, 4),
	}
	sectors := packLengths(records, sectorSize)
	for _, s := range sectors {
		if len(s) != sectorSize {
			t.Fatalf("expected every sector padded to %d bytes, got %d", sectorSize, len(s))
		}
	}
	if len(sectors) != 2 {
		t.Fatalf("expected 2 sectors, got %d", len(sectors))
	}
}
