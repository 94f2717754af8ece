package iso9660

import (
	"encoding/binary"
	"io"
	"strings"
)

// Reader opens an already-written ECMA-119 image for read-only access:
// locate the PVD, resolve the root directory, walk path components down
// to a target entry, and hand back a positioned reader over its extent.
type Reader struct {
	src        io.ReaderAt
	strictness Strictness

	rootLBA  uint32
	rootSize uint32
}

// DirEntry describes one child of a directory listing as read back from
// an image.
type DirEntry struct {
	Name  string
	IsDir bool
	LBA   uint32
	Size  uint32
	Flags byte
}

// OpenReader parses the Primary Volume Descriptor at LBA 16 from src and
// returns a Reader positioned at the root directory.
func OpenReader(src io.ReaderAt, strictness Strictness) (*Reader, error) {
	sector := make([]byte, SectorSize)
	if _, err := src.ReadAt(sector, int64(SystemAreaNumSectors)*SectorSize); err != nil {
		return nil, newError(KindIoError, "reading PVD sector", err)
	}

	if sector[0] != vdTypePrimary {
		return nil, newError(KindNotConformant, "LBA 16 is not a Primary Volume Descriptor", nil)
	}
	if string(sector[1:6]) != string(standardIdentifier[:]) {
		return nil, newError(KindNotConformant, "missing CD001 standard identifier", nil)
	}
	if sector[6] != 1 {
		err := newError(KindNotConformant, "PVD version is not 1", nil)
		if strictness == Strict {
			return nil, err
		}
		warningf("%s: continuing under relaxed strictness", err.Error())
	}

	rootDR := sector[156:190]
	lba, err := bothEndianUint32(rootDR[2:10])
	if err != nil {
		if strictness == Strict {
			return nil, err
		}
		warningf("root directory record LBA: %s", err.Error())
	}
	size, err := bothEndianUint32(rootDR[10:18])
	if err != nil {
		if strictness == Strict {
			return nil, err
		}
		warningf("root directory record size: %s", err.Error())
	}

	return &Reader{src: src, strictness: strictness, rootLBA: lba, rootSize: size}, nil
}

// ReadDir lists the children of the directory at lba, spanning size bytes
// (its full sector-aligned extent), skipping the synthetic "." and ".."
// entries.
func (r *Reader) ReadDir(lba, size uint32) ([]DirEntry, error) {
	buf := make([]byte, size)
	if _, err := r.src.ReadAt(buf, int64(lba)*SectorSize); err != nil {
		return nil, newError(KindIoError, "reading directory extent", err)
	}

	var entries []DirEntry
	skip := 2 // "." and ".."
	for sectorOff := 0; sectorOff < len(buf); sectorOff += SectorSize {
		sector := buf[sectorOff:min(sectorOff+SectorSize, len(buf))]
		pos := 0
		for pos < len(sector) {
			recLen := int(sector[pos])
			if recLen == 0 {
				break // remainder of this sector is padding
			}
			if pos+recLen > len(sector) {
				return nil, newError(KindNotConformant, "directory record crosses a sector boundary", nil)
			}
			rec := sector[pos : pos+recLen]
			pos += recLen

			if skip > 0 {
				skip--
				continue
			}

			lba, err := bothEndianUint32(rec[2:10])
			if err != nil {
				return nil, err
			}
			dataLen, err := bothEndianUint32(rec[10:18])
			if err != nil {
				return nil, err
			}
			flags := rec[25]
			idLen := int(rec[32])
			name := string(rec[33 : 33+idLen])

			entries = append(entries, DirEntry{
				Name:  strings.TrimSuffix(name, ";1"),
				IsDir: flags&fileFlagDirectory != 0,
				LBA:   lba,
				Size:  dataLen,
				Flags: flags,
			})
		}
	}
	return entries, nil
}

// Lookup resolves a '/'-separated path to its directory entry, walking
// down from the root.
func (r *Reader) Lookup(path string) (DirEntry, error) {
	path = strings.Trim(path, "/")
	cur := DirEntry{IsDir: true, LBA: r.rootLBA, Size: r.rootSize}
	if path == "" {
		return cur, nil
	}

	for _, component := range strings.Split(path, "/") {
		if !cur.IsDir {
			return DirEntry{}, newError(KindInvalidInput, "'"+component+"' has a non-directory ancestor", nil)
		}
		children, err := r.ReadDir(cur.LBA, cur.Size)
		if err != nil {
			return DirEntry{}, err
		}
		found := false
		for _, child := range children {
			if strings.EqualFold(child.Name, component) {
				cur = child
				found = true
				break
			}
		}
		if !found {
			return DirEntry{}, newError(KindInvalidInput, "path component '"+component+"' not found", nil)
		}
	}
	return cur, nil
}

// BootCatalogEntry is one Default/Section Entry read back from an El
// Torito boot catalog.
type BootCatalogEntry struct {
	Platform    BootPlatform
	Media       BootMedia
	LoadSegment uint16
	SystemType  byte
	LBA         uint32
	SectorCount uint16
}

// ReadBootCatalog walks the volume descriptor set looking for a Boot
// Record Descriptor, then parses and validates its boot catalog. Returns
// KindBootCatalogError if no Boot Record Descriptor is present, or if the
// catalog's Validation Entry checksum doesn't sum to zero.
func (r *Reader) ReadBootCatalog() ([]BootCatalogEntry, error) {
	bootRecordLBA, err := r.findBootRecordDescriptor()
	if err != nil {
		return nil, err
	}

	header := make([]byte, SectorSize)
	if _, err := r.src.ReadAt(header, int64(bootRecordLBA)*SectorSize); err != nil {
		return nil, newError(KindIoError, "reading Boot Record Descriptor", err)
	}
	catalogLBA := binary.LittleEndian.Uint32(header[71:75])

	catalog := make([]byte, SectorSize)
	if _, err := r.src.ReadAt(catalog, int64(catalogLBA)*SectorSize); err != nil {
		return nil, newError(KindIoError, "reading El Torito boot catalog", err)
	}

	if !verifyValidationChecksum(catalog[0:32]) {
		return nil, newError(KindBootCatalogError, "boot catalog Validation Entry checksum mismatch", nil)
	}
	val, err := unmarshalValidationEntry(catalog[0:32])
	if err != nil {
		return nil, err
	}

	var entries []BootCatalogEntry
	def, err := unmarshalCatalogEntry(catalog[32:64])
	if err != nil {
		return nil, err
	}
	entries = append(entries, BootCatalogEntry{
		Platform:    BootPlatform(val.PlatformID),
		Media:       BootMedia(def.BootMediaType),
		LoadSegment: def.LoadSegment,
		SystemType:  def.SystemType,
		LBA:         def.LoadLBA,
		SectorCount: def.SectorCount,
	})

	pos := 64
	for pos+32 <= len(catalog) {
		indicator := catalog[pos]
		if indicator != 0x90 && indicator != 0x91 {
			break
		}
		platform := catalog[pos+1]
		numEntries := int(catalog[pos+2]) | int(catalog[pos+3])<<8
		pos += 32
		for i := 0; i < numEntries && pos+32 <= len(catalog); i++ {
			se, err := unmarshalCatalogEntry(catalog[pos : pos+32])
			if err != nil {
				return nil, err
			}
			entries = append(entries, BootCatalogEntry{
				Platform:    BootPlatform(platform),
				Media:       BootMedia(se.BootMediaType),
				LoadSegment: se.LoadSegment,
				SystemType:  se.SystemType,
				LBA:         se.LoadLBA,
				SectorCount: se.SectorCount,
			})
			pos += 32
		}
		if indicator == 0x91 {
			break
		}
	}
	return entries, nil
}

// findBootRecordDescriptor scans the volume descriptor set starting at
// LBA 16 for a Boot Record Descriptor, stopping at the Terminator.
func (r *Reader) findBootRecordDescriptor() (uint32, error) {
	sector := make([]byte, 7)
	for lba := uint32(SystemAreaNumSectors); ; lba++ {
		if _, err := r.src.ReadAt(sector, int64(lba)*SectorSize); err != nil {
			return 0, newError(KindIoError, "scanning volume descriptor set", err)
		}
		switch sector[0] {
		case vdTypeBootRecord:
			return lba, nil
		case vdTypeTerminator:
			return 0, newError(KindBootCatalogError, "no Boot Record Descriptor present", nil)
		}
	}
}

// Open returns a positioned reader over a file entry's data extent.
func (r *Reader) Open(entry DirEntry) (io.Reader, error) {
	if entry.IsDir {
		return nil, newError(KindInvalidInput, "cannot open a directory as file data", nil)
	}
	return io.NewSectionReader(r.src, int64(entry.LBA)*SectorSize, int64(entry.Size)), nil
}
