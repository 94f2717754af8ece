package iso9660

import (
	"io"
	"os"

	"github.com/dsoprea/go-logging"
)

// Builder orchestrates planning and emission of an ECMA-119 image from a
// FileInput sequence. It never touches the host filesystem itself; the
// hostfs package (or any other FileInput implementation) supplies the
// tree.
type Builder struct {
	opts  *Options
	nodes []node
	plan  *ImagePlan
}

// NewBuilder returns a Builder for opts. opts.Files must be set before
// Scan is called; if opts is nil, DefaultOptions() is used.
func NewBuilder(opts *Options) *Builder {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Builder{opts: opts}
}

// Scan consumes opts.Files and builds the in-memory directory tree. Build
// calls this automatically if it has not already run.
func (b *Builder) Scan() error {
	if b.opts.Files == nil {
		return newError(KindInvalidInput, "Options.Files is nil", nil)
	}
	nodes, err := buildTree(b.opts.Files, b.opts.Strictness)
	if err != nil {
		return err
	}
	b.nodes = nodes
	return nil
}

// MarkHidden flags entries at the given image paths (e.g. "docs/draft.txt")
// as hidden. Matching is by full path, not bare filename, so same-named
// entries in different directories stay independent.
func (b *Builder) MarkHidden(paths ...string) {
	markHidden(b.nodes, paths...)
}

// Build scans (if needed), plans the layout, and writes the complete image
// to outputFilename.
func (b *Builder) Build(outputFilename string) (err error) {
	isoFile, err := os.Create(outputFilename)
	if err != nil {
		return newError(KindIoError, "creating output file '"+outputFilename+"'", err)
	}
	defer func() {
		closeErr := isoFile.Close()
		if err == nil && closeErr != nil {
			err = newError(KindIoError, "closing output file", closeErr)
		}
	}()

	if err = b.WriteTo(isoFile); err != nil {
		return err
	}
	return nil
}

// WriteTo scans (if needed), plans the layout, and writes the complete
// image to w.
func (b *Builder) WriteTo(w io.WriteSeeker) error {
	if len(b.nodes) == 0 {
		if err := b.Scan(); err != nil {
			return err
		}
	}

	plan, err := planLayout(b.nodes, b.opts, b.opts.BootEntries)
	if err != nil {
		return err
	}
	b.plan = plan

	if err := writeSystemArea(w, b.opts); err != nil {
		return err
	}
	if err := writeVolumeDescriptors(w, plan); err != nil {
		return err
	}
	if err := writeAllPathTables(w, plan); err != nil {
		return err
	}
	if err := writeBootCatalog(w, plan); err != nil {
		return err
	}
	if err := writeAllDirectoryContents(w, plan); err != nil {
		return err
	}
	if err := writeAllFileData(w, plan); err != nil {
		return err
	}
	if err := writeRockRidgeContinuation(w, plan); err != nil {
		return err
	}
	return finalizeImageSize(w, plan)
}

// writeSystemArea writes LBAs 0..15. Under Compatible strictness with a
// non-nil SystemAreaBytes, the caller's hybrid header (e.g. an MBR) is
// copied in verbatim; otherwise the area is zeroed, per ECMA-119's
// "reserved for other use" system area.
func writeSystemArea(w io.WriteSeeker, opts *Options) error {
	const areaBytes = SystemAreaNumSectors * SectorSize
	var data []byte
	if opts.Strictness == Compatible && len(opts.SystemAreaBytes) > 0 {
		if len(opts.SystemAreaBytes) > areaBytes {
			return newError(KindInvalidInput, "SystemAreaBytes exceeds the system area", nil)
		}
		data = opts.SystemAreaBytes
	}
	if err := writeAtSectorAndPad(w, data, 0, areaBytes); err != nil {
		return newError(KindIoError, "writing system area", err)
	}
	return nil
}

// writeVolumeDescriptors writes the PVD, the optional Boot Record
// Descriptor, the optional SVD (Joliet), and the Terminator at the LBAs
// planLayout already reserved for each.
func writeVolumeDescriptors(w io.WriteSeeker, plan *ImagePlan) error {
	if err := writeAtSectorAndPad(w, plan.createPrimaryVolumeDescriptor(), int(plan.lbaPVD), SectorSize); err != nil {
		return newError(KindIoError, "writing PVD", err)
	}

	if plan.lbaBootRecord != 0 {
		if err := writeAtSectorAndPad(w, plan.createBootRecordVolumeDescriptor(), int(plan.lbaBootRecord), SectorSize); err != nil {
			return newError(KindIoError, "writing Boot Record Descriptor", err)
		}
	}

	if plan.opts.EnableJoliet {
		if err := writeAtSectorAndPad(w, plan.createJolietVolumeDescriptor(), int(plan.lbaSVD), SectorSize); err != nil {
			return newError(KindIoError, "writing SVD", err)
		}
	}

	if err := writeAtSectorAndPad(w, createVolumeDescriptorTerminator(), int(plan.lbaTerminator), SectorSize); err != nil {
		return newError(KindIoError, "writing VD terminator", err)
	}
	return nil
}

// writeAllPathTables writes all four path tables (PVD L/M, SVD L/M if
// Joliet is enabled) and their second copies.
func writeAllPathTables(w io.WriteSeeker, plan *ImagePlan) error {
	pvdAlloc := int(sectorsToContainBytes(len(plan.pvdPathTableLData)) * SectorSize)
	if err := writeAtSectorAndPad(w, plan.pvdPathTableLData, int(plan.lbaPvdPathTableL), pvdAlloc); err != nil {
		return newError(KindIoError, "writing PVD L path table", err)
	}
	if err := writeAtSectorAndPad(w, plan.pvdPathTableMData, int(plan.lbaPvdPathTableM), pvdAlloc); err != nil {
		return newError(KindIoError, "writing PVD M path table", err)
	}
	if err := writeAtSectorAndPad(w, plan.pvdPathTableLData, int(plan.lbaPvdPathTableL2), pvdAlloc); err != nil {
		return newError(KindIoError, "writing PVD L path table (2nd copy)", err)
	}
	if err := writeAtSectorAndPad(w, plan.pvdPathTableMData, int(plan.lbaPvdPathTableM2), pvdAlloc); err != nil {
		return newError(KindIoError, "writing PVD M path table (2nd copy)", err)
	}

	if !plan.opts.EnableJoliet {
		return nil
	}

	svdAlloc := int(sectorsToContainBytes(len(plan.svdPathTableLData)) * SectorSize)
	if err := writeAtSectorAndPad(w, plan.svdPathTableLData, int(plan.lbaSvdPathTableL), svdAlloc); err != nil {
		return newError(KindIoError, "writing SVD L path table", err)
	}
	if err := writeAtSectorAndPad(w, plan.svdPathTableMData, int(plan.lbaSvdPathTableM), svdAlloc); err != nil {
		return newError(KindIoError, "writing SVD M path table", err)
	}
	if err := writeAtSectorAndPad(w, plan.svdPathTableLData, int(plan.lbaSvdPathTableL2), svdAlloc); err != nil {
		return newError(KindIoError, "writing SVD L path table (2nd copy)", err)
	}
	if err := writeAtSectorAndPad(w, plan.svdPathTableMData, int(plan.lbaSvdPathTableM2), svdAlloc); err != nil {
		return newError(KindIoError, "writing SVD M path table (2nd copy)", err)
	}
	return nil
}

// writeBootCatalog writes the El Torito boot catalog sector, if any
// BootEntry was configured.
func writeBootCatalog(w io.WriteSeeker, plan *ImagePlan) error {
	if plan.bootCatalogBytes == nil {
		return nil
	}
	if err := writeAtSectorAndPad(w, plan.bootCatalogBytes, int(plan.bootCatalogLBA), SectorSize); err != nil {
		return newError(KindIoError, "writing El Torito boot catalog", err)
	}
	return nil
}

// writeAllDirectoryContents writes the ISO9660 and, if enabled, Joliet
// directory listings for every directory node.
func writeAllDirectoryContents(w io.WriteSeeker, plan *ImagePlan) error {
	rb := &recordBuilder{nodes: plan.nodes, opts: plan.opts, rrTails: plan.rrTails}
	for i, n := range plan.nodes {
		if !n.isDir {
			continue
		}
		isoListing := rb.createDirectoryListing(i, false)
		if uint32(len(isoListing)) > n.iso9660Size {
			return newError(KindPlanOverflow, "ISO9660 listing for '"+n.isoPath+"' exceeds its planned extent", nil)
		}
		if err := writeAtSectorAndPad(w, isoListing, int(n.iso9660Sector), int(n.iso9660Size)); err != nil {
			return newError(KindIoError, "writing ISO9660 directory extent for '"+n.isoPath+"'", err)
		}

		if !plan.opts.EnableJoliet {
			continue
		}
		jolietListing := rb.createDirectoryListing(i, true)
		if uint32(len(jolietListing)) > n.jolietSize {
			return newError(KindPlanOverflow, "Joliet listing for '"+n.isoPath+"' exceeds its planned extent", nil)
		}
		if err := writeAtSectorAndPad(w, jolietListing, int(n.jolietSector), int(n.jolietSize)); err != nil {
			return newError(KindIoError, "writing Joliet directory extent for '"+n.isoPath+"'", err)
		}
	}
	return nil
}

// writeAllFileData streams every file's payload from its FileInput-supplied
// FileSource to its planned extent(s), splitting across extraExtents for
// files whose size exceeded MaxFileSize.
func writeAllFileData(w io.WriteSeeker, plan *ImagePlan) error {
	for i := range plan.nodes {
		n := &plan.nodes[i]
		if n.isDir {
			continue
		}
		if err := writeOneFile(w, n); err != nil {
			return err
		}
	}
	return nil
}

// writeOneFile streams one file's payload to its planned extents, one
// sector-sized buffer at a time, so memory use never scales with file
// size. The source is opened lazily and closed as soon as the file is
// done.
func writeOneFile(w io.WriteSeeker, n *node) error {
	if n.size == 0 && len(n.extraExtents) == 0 {
		return writeAtSectorAndPad(w, nil, int(n.iso9660Sector), SectorSize)
	}
	if n.open == nil {
		return newError(KindInvalidInput, "file '"+n.isoPath+"' has no Open function", nil)
	}
	src, err := n.open()
	if err != nil {
		return newError(KindIoError, "opening '"+n.isoPath+"'", err)
	}
	if closer, ok := src.(io.Closer); ok {
		defer func() {
			log.PanicIf(closer.Close())
		}()
	}

	sector := n.iso9660Sector
	var offset int64
	buf := make([]byte, SectorSize)
	pad := make([]byte, SectorSize)
	for _, extentSize := range n.fileExtents() {
		allocBytes := int64(sectorsToContainFileBytes(extentSize)) * SectorSize
		if _, err := w.Seek(int64(sector)*SectorSize, io.SeekStart); err != nil {
			return newError(KindIoError, "seeking to extent of '"+n.isoPath+"'", err)
		}

		sr := io.NewSectionReader(src, offset, int64(extentSize))
		copied, err := io.CopyBuffer(w, sr, buf)
		if err != nil {
			return newError(KindIoError, "copying data for '"+n.isoPath+"'", err)
		}
		if copied != int64(extentSize) {
			return newError(KindIoError, "payload for '"+n.isoPath+"' is shorter than its declared size", nil)
		}

		for padding := allocBytes - copied; padding > 0; {
			chunk := int64(len(pad))
			if padding < chunk {
				chunk = padding
			}
			if _, err := w.Write(pad[:chunk]); err != nil {
				return newError(KindIoError, "padding extent of '"+n.isoPath+"'", err)
			}
			padding -= chunk
		}

		sector += uint32(allocBytes / SectorSize)
		offset += int64(extentSize)
	}
	return nil
}

// writeRockRidgeContinuation writes the continuation extent backing the
// CE entries planRockRidge emitted, if any tail overflowed inline space.
func writeRockRidgeContinuation(w io.WriteSeeker, plan *ImagePlan) error {
	if plan.rrPlan == nil || plan.rrContinuationLBA == 0 {
		return nil
	}
	for i, block := range plan.rrPlan.blocks {
		if err := writeAtSectorAndPad(w, block, int(plan.rrContinuationLBA)+i, SectorSize); err != nil {
			return newError(KindIoError, "writing Rock Ridge continuation area", err)
		}
	}
	return nil
}

// finalizeImageSize pads (or, if the underlying writer ran long, truncates)
// the image to the exact size planLayout computed.
func finalizeImageSize(w io.WriteSeeker, plan *ImagePlan) error {
	expected := int64(plan.totalSectors) * SectorSize
	current, err := w.Seek(0, io.SeekEnd)
	if err != nil {
		return newError(KindIoError, "seeking to end of image", err)
	}
	if current >= expected {
		if f, ok := w.(interface{ Truncate(int64) error }); ok && current > expected {
			warningf("image grew to %d bytes, expected %d; truncating", current, expected)
			if err := f.Truncate(expected); err != nil {
				return newError(KindIoError, "truncating final image", err)
			}
		}
		return nil
	}
	return writeAtSectorAndPad(w, nil, int(plan.totalSectors-1), SectorSize)
}

// writeAtSectorAndPad writes data at sectorNum (0-indexed), zero-padding up
// to totalAllocatedBytesOnDisk. totalAllocatedBytesOnDisk must be a
// multiple of SectorSize when positive.
func writeAtSectorAndPad(w io.WriteSeeker, data []byte, sectorNum int, totalAllocatedBytesOnDisk int) error {
	if totalAllocatedBytesOnDisk > 0 && totalAllocatedBytesOnDisk%SectorSize != 0 {
		return newError(KindPlanOverflow, "allocation not a multiple of the sector size", nil)
	}
	if len(data) > totalAllocatedBytesOnDisk {
		return newError(KindPlanOverflow, "data longer than its allocated extent", nil)
	}

	targetOffset := int64(sectorNum) * int64(SectorSize)
	if _, err := w.Seek(targetOffset, io.SeekStart); err != nil {
		return newError(KindIoError, "seeking to sector", err)
	}

	written := 0
	if len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			return newError(KindIoError, "writing sector data", err)
		}
		written = n
	}

	padding := totalAllocatedBytesOnDisk - written
	if padding <= 0 {
		return nil
	}
	padBuf := make([]byte, SectorSize)
	for padding > 0 {
		chunk := len(padBuf)
		if padding < chunk {
			chunk = padding
		}
		n, err := w.Write(padBuf[:chunk])
		if err != nil {
			return newError(KindIoError, "writing sector padding", err)
		}
		padding -= n
	}
	return nil
}
