package iso9660

import (
	"encoding/binary"
	"testing"
)

func descriptorTestPlan(t *testing.T, opts *Options) *ImagePlan {
	t.Helper()
	nodes, err := buildTree(NewSliceFileInput([]FileRecord{
		{Path: "a.txt", Size: 5},
	}), Default)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	plan, err := planLayout(nodes, opts, nil)
	if err != nil {
		t.Fatalf("planLayout: %v", err)
	}
	return plan
}

func TestCreatePrimaryVolumeDescriptorHeaderAndIdentifier(t *testing.T) {
	opts := DefaultOptions()
	opts.VolumeIdentifierISO = "MY_VOLUME"
	plan := descriptorTestPlan(t, opts)

	pvd := plan.createPrimaryVolumeDescriptor()
	if len(pvd) != SectorSize {
		t.Fatalf("expected a %d-byte sector, got %d", SectorSize, len(pvd))
	}
	if pvd[0] != vdTypePrimary {
		t.Fatalf("expected VD type %d, got %d", vdTypePrimary, pvd[0])
	}
	if string(pvd[1:6]) != "CD001" {
		t.Fatalf("expected CD001 standard identifier, got %q", pvd[1:6])
	}
	if pvd[6] != 1 {
		t.Fatalf("expected version 1, got %d", pvd[6])
	}

	volID := string(pvd[40:72])
	wantPrefix := "MY_VOLUME"
	if volID[:len(wantPrefix)] != wantPrefix {
		t.Fatalf("expected volume identifier to start with %q, got %q", wantPrefix, volID)
	}
}

func TestCreatePrimaryVolumeDescriptorTotalSectorsBothEndian(t *testing.T) {
	opts := DefaultOptions()
	plan := descriptorTestPlan(t, opts)
	pvd := plan.createPrimaryVolumeDescriptor()

	got, err := bothEndianUint32(pvd[80:88])
	if err != nil {
		t.Fatalf("bothEndianUint32: %v", err)
	}
	if got != plan.totalSectors {
		t.Fatalf("got %d, want %d", got, plan.totalSectors)
	}
}

func TestCreatePrimaryVolumeDescriptorRootDirectoryRecordMatchesPlan(t *testing.T) {
	opts := DefaultOptions()
	plan := descriptorTestPlan(t, opts)
	pvd := plan.createPrimaryVolumeDescriptor()

	rootDR := pvd[156:190]
	lba, err := bothEndianUint32(rootDR[2:10])
	if err != nil {
		t.Fatalf("bothEndianUint32 LBA: %v", err)
	}
	if lba != plan.nodes[0].iso9660Sector {
		t.Fatalf("got root LBA %d, want %d", lba, plan.nodes[0].iso9660Sector)
	}
	size, err := bothEndianUint32(rootDR[10:18])
	if err != nil {
		t.Fatalf("bothEndianUint32 size: %v", err)
	}
	if size != plan.pvdRootDirExtentSize {
		t.Fatalf("got root extent size %d, want %d", size, plan.pvdRootDirExtentSize)
	}
}

func TestCreateBootRecordVolumeDescriptorPointsAtCatalogLBA(t *testing.T) {
	opts := DefaultOptions()
	nodes, err := buildTree(NewSliceFileInput([]FileRecord{
		{Path: "boot.img", Size: 512},
	}), Default)
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	plan, err := planLayout(nodes, opts, []BootEntry{{BootImagePath: "boot.img"}})
	if err != nil {
		t.Fatalf("planLayout: %v", err)
	}

	brd := plan.createBootRecordVolumeDescriptor()
	if brd[0] != vdTypeBootRecord {
		t.Fatalf("expected VD type %d, got %d", vdTypeBootRecord, brd[0])
	}
	if string(brd[7:30]) != "EL TORITO SPECIFICATION" {
		t.Fatalf("expected the El Torito system identifier, got %q", brd[7:30])
	}
	gotLBA := binary.LittleEndian.Uint32(brd[71:75])
	if gotLBA != plan.bootCatalogLBA {
		t.Fatalf("got catalog LBA %d, want %d", gotLBA, plan.bootCatalogLBA)
	}
}

func TestCreateVolumeDescriptorTerminator(t *testing.T) {
	term := createVolumeDescriptorTerminator()
	if len(term) != SectorSize {
		t.Fatalf("expected a %d-byte sector, got %d", SectorSize, len(term))
	}
	if term[0] != vdTypeTerminator {
		t.Fatalf("expected VD type %d, got %d", vdTypeTerminator, term[0])
	}
	if string(term[1:6]) != "CD001" {
		t.Fatalf("expected CD001 standard identifier, got %q", term[1:6])
	}
}
