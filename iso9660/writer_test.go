package iso9660

import (
	"bytes"
	"io"
	"testing"
	"time"
)

// memImage is a growable in-memory io.WriteSeeker that also satisfies
// io.ReaderAt, so a built image can be handed straight to OpenReader
// without touching disk.
type memImage struct {
	buf []byte
	pos int64
}

func (m *memImage) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memImage) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = int64(len(m.buf))
	}
	m.pos = base + offset
	return m.pos, nil
}

func (m *memImage) Truncate(size int64) error {
	if size < int64(len(m.buf)) {
		m.buf = m.buf[:size]
	}
	return nil
}

func (m *memImage) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func buildTestImage(t *testing.T, opts *Options) *memImage {
	t.Helper()
	b := NewBuilder(opts)
	img := &memImage{}
	if err := b.WriteTo(img); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if len(img.buf)%SectorSize != 0 {
		t.Fatalf("final image size %d is not sector-aligned", len(img.buf))
	}
	return img
}

func TestWriteToAndReaderRoundTripFileContents(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "hello.txt", Size: 11, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("hello world")), nil
		}},
		{Path: "docs/readme.txt", Size: 2, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("hi")), nil
		}},
	})

	img := buildTestImage(t, opts)

	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	entry, err := r.Lookup("hello.txt")
	if err != nil {
		t.Fatalf("Lookup hello.txt: %v", err)
	}
	if entry.IsDir {
		t.Fatalf("hello.txt read back as a directory")
	}
	rd, err := r.Open(entry)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("got %q, want %q", got, "hello world")
	}

	nested, err := r.Lookup("docs/readme.txt")
	if err != nil {
		t.Fatalf("Lookup docs/readme.txt: %v", err)
	}
	rd2, err := r.Open(nested)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got2, err := io.ReadAll(rd2)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got2) != "hi" {
		t.Fatalf("got %q, want %q", got2, "hi")
	}
}

func TestWriteToMarksHiddenEntries(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "secret.txt", Size: 1, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("x")), nil
		}},
	})

	b := NewBuilder(opts)
	if err := b.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	b.MarkHidden("secret.txt")

	img := &memImage{}
	if err := b.WriteTo(img); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	entry, err := r.Lookup("secret.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if entry.Flags&fileFlagHidden == 0 {
		t.Fatalf("expected the hidden file flag to survive the round trip")
	}
}

func TestWriteToProducesLookupableDirectoryHierarchy(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = true
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "a/b/c.txt", Size: 3, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("abc")), nil
		}},
	})

	img := buildTestImage(t, opts)
	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	entry, err := r.Lookup("a/b/c.txt")
	if err != nil {
		t.Fatalf("Lookup a/b/c.txt: %v", err)
	}
	rd, err := r.Open(entry)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(rd)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("got %q, want %q", got, "abc")
	}
}

func TestWriteAtSectorAndPadRejectsOversizedData(t *testing.T) {
	img := &memImage{}
	err := writeAtSectorAndPad(img, make([]byte, SectorSize+1), 0, SectorSize)
	if !IsKind(err, KindPlanOverflow) {
		t.Fatalf("expected KindPlanOverflow, got %v", err)
	}
}

func TestWriteToEmptyImagePVDBytes(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.VolumeIdentifierISO = "TEST"
	opts.Files = NewSliceFileInput(nil)

	img := buildTestImage(t, opts)

	if img.buf[0x8000] != 0x01 {
		t.Fatalf("expected PVD type byte 0x01 at offset 0x8000, got 0x%02x", img.buf[0x8000])
	}
	if string(img.buf[0x8001:0x8006]) != "CD001" {
		t.Fatalf("expected CD001 at offset 0x8001, got %q", img.buf[0x8001:0x8006])
	}

	volID := img.buf[0x8028 : 0x8028+32]
	if string(volID[:4]) != "TEST" {
		t.Fatalf("expected the volume identifier to start with TEST, got %q", volID)
	}
	for i := 4; i < 32; i++ {
		if volID[i] != ' ' {
			t.Fatalf("expected space padding at volume identifier byte %d, got 0x%02x", i, volID[i])
		}
	}

	spaceSize, err := bothEndianUint32(img.buf[0x8050 : 0x8050+8])
	if err != nil {
		t.Fatalf("bothEndianUint32: %v", err)
	}
	if int(spaceSize)*SectorSize != len(img.buf) {
		t.Fatalf("volume space size %d sectors, file is %d sectors", spaceSize, len(img.buf)/SectorSize)
	}
}

func TestWriteToSingleFileExtentBytesAndPadding(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "hello.txt", Size: 5, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("hello")), nil
		}},
	})

	img := buildTestImage(t, opts)
	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}

	entries, err := r.ReadDir(r.rootLBA, r.rootSize)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "HELLO.TXT" {
		t.Fatalf("expected a single HELLO.TXT entry, got %+v", entries)
	}

	extent := img.buf[int(entries[0].LBA)*SectorSize:]
	if string(extent[:5]) != "hello" {
		t.Fatalf("expected the extent to start with the payload, got % x", extent[:5])
	}
	for i := 5; i < SectorSize; i++ {
		if extent[i] != 0 {
			t.Fatalf("expected zero sector padding at extent byte %d, got 0x%02x", i, extent[i])
		}
	}
}

func TestWriteToJolietEncodesNamesAsUCS2BigEndian(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = true
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "café.txt", Size: 1, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("x")), nil
		}},
	})

	img := buildTestImage(t, opts)

	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	entries, err := r.ReadDir(r.rootLBA, r.rootSize)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "CAF_.TXT" {
		t.Fatalf("expected the mangled CAF_.TXT entry, got %+v", entries)
	}

	// The SVD's parallel directory extent must carry the original name in
	// UCS-2 big-endian.
	want := []byte{0x00, 'c', 0x00, 'a', 0x00, 'f', 0x00, 0xE9}
	if !bytes.Contains(img.buf, want) {
		t.Fatalf("UCS-2BE encoding of café not found anywhere in the image")
	}
}

func TestWriteToElToritoCatalogReferencesBootImage(t *testing.T) {
	bootPayload := make([]byte, 4*SectorSize)
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "boot.img", Size: int64(len(bootPayload)), Open: func() (FileSource, error) {
			return bytes.NewReader(bootPayload), nil
		}},
	})
	opts.BootEntries = []BootEntry{{
		Platform:      BootPlatformX86,
		Media:         BootMediaNoEmulation,
		BootImagePath: "boot.img",
	}}

	img := buildTestImage(t, opts)

	// Boot Record Descriptor directly after the PVD.
	brd := img.buf[17*SectorSize:]
	if brd[0] != vdTypeBootRecord {
		t.Fatalf("expected a Boot Record Descriptor at LBA 17, got type %d", brd[0])
	}
	if string(brd[7:30]) != elToritoBootSystemID {
		t.Fatalf("unexpected boot system identifier %q", brd[7:30])
	}

	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	catalog, err := r.ReadBootCatalog()
	if err != nil {
		t.Fatalf("ReadBootCatalog: %v", err)
	}
	if len(catalog) != 1 {
		t.Fatalf("expected one catalog entry, got %d", len(catalog))
	}
	if catalog[0].SectorCount != 0x0010 {
		t.Fatalf("expected a sector count of 16 virtual sectors, got %d", catalog[0].SectorCount)
	}

	entry, err := r.Lookup("boot.img")
	if err != nil {
		t.Fatalf("Lookup boot.img: %v", err)
	}
	if catalog[0].LBA != entry.LBA {
		t.Fatalf("catalog LBA %d does not match the boot image's extent LBA %d", catalog[0].LBA, entry.LBA)
	}
}

func TestWriteToIsDeterministicWithFixedTimestamp(t *testing.T) {
	build := func() []byte {
		opts := DefaultOptions()
		opts.Timestamp = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		opts.EnableRockRidge = true
		opts.Files = NewSliceFileInput([]FileRecord{
			{Path: "a.txt", Size: 3, ModTime: opts.Timestamp, Open: func() (FileSource, error) {
				return bytes.NewReader([]byte("abc")), nil
			}},
			{Path: "dir/b.txt", Size: 1, ModTime: opts.Timestamp, Open: func() (FileSource, error) {
				return bytes.NewReader([]byte("b")), nil
			}},
		})
		img := &memImage{}
		if err := NewBuilder(opts).WriteTo(img); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
		return img.buf
	}

	first := build()
	second := build()
	if !bytes.Equal(first, second) {
		t.Fatalf("two builds of identical input differ")
	}
}

func TestWriteToStrictRejectsNonConformantSiblings(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Strictness = Strict
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "a.txt", Size: 1, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("x")), nil
		}},
		{Path: "A.TXT", Size: 1, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("y")), nil
		}},
	})

	err := NewBuilder(opts).WriteTo(&memImage{})
	if !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput under Strict, got %v", err)
	}
}

func TestWriteToDefaultDeduplicatesCaseCollidingSiblings(t *testing.T) {
	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Files = NewSliceFileInput([]FileRecord{
		{Path: "a.txt", Size: 1, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("x")), nil
		}},
		{Path: "A.TXT", Size: 1, Open: func() (FileSource, error) {
			return bytes.NewReader([]byte("y")), nil
		}},
	})

	img := buildTestImage(t, opts)
	r, err := OpenReader(img, Default)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	entries, err := r.ReadDir(r.rootLBA, r.rootSize)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both siblings to survive deduplication, got %+v", entries)
	}
	if entries[0].Name == entries[1].Name {
		t.Fatalf("expected distinct mangled names, both are %q", entries[0].Name)
	}
}

func TestWriteToCompatibleCopiesSystemAreaBytes(t *testing.T) {
	mbr := make([]byte, 512)
	copy(mbr, "fake hybrid header")
	mbr[510], mbr[511] = 0x55, 0xAA

	opts := DefaultOptions()
	opts.EnableJoliet = false
	opts.Strictness = Compatible
	opts.SystemAreaBytes = mbr
	opts.Files = NewSliceFileInput(nil)

	img := buildTestImage(t, opts)
	if !bytes.Equal(img.buf[:512], mbr) {
		t.Fatalf("system area does not carry the caller's header verbatim")
	}
	for _, b := range img.buf[512 : SystemAreaNumSectors*SectorSize] {
		if b != 0 {
			t.Fatalf("expected the rest of the system area to be zeroed")
		}
	}
}
