package iso9660

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"

	"github.com/dsoprea/go-logging"
)

// sectorsToContainBytes calculates the number of sectors needed to hold byteSize data.
// Returns 0 if byteSize is 0.
func sectorsToContainBytes(byteSize int) uint32 {
	if byteSize == 0 {
		return 0
	}
	return (uint32(byteSize) + SectorSize - 1) / SectorSize
}

// sectorsToContainFileBytes calculates sectors needed for file data.
// Even an empty file's extent descriptor points to an LBA, conventionally
// consuming 1 sector on disk for its (empty) data extent, though the data
// length in its DR is 0.
func sectorsToContainFileBytes(fileDataSizeBytes uint64) uint32 {
	if fileDataSizeBytes == 0 {
		return 1
	}
	return uint32((fileDataSizeBytes + SectorSize - 1) / SectorSize)
}

// formatTimestamp creates an ISO9660 17-byte timestamp string. (ECMA-119
// 8.4.26.1). If t is zero, returns a "not specified" timestamp (16 '0'
// digits + zero offset byte).
func formatTimestamp(t time.Time) []byte {
	tsBytes := make([]byte, 17)
	if t.IsZero() {
		for i := 0; i < 16; i++ {
			tsBytes[i] = '0'
		}
		return tsBytes
	}
	timestampStr := fmt.Sprintf("%04d%02d%02d%02d%02d%02d00",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	copy(tsBytes, []byte(timestampStr))
	tsBytes[16] = 0
	return tsBytes
}

// formatRecordingTime fills the 7-byte RecordingTime field of a Directory
// Record (ECMA-119 9.1.5): year since 1900, month, day, hour, minute,
// second, GMT offset in 15-minute intervals.
func formatRecordingTime(t time.Time) [7]byte {
	var b [7]byte
	if t.IsZero() {
		return b
	}
	b[0] = byte(t.Year() - 1900)
	b[1] = byte(t.Month())
	b[2] = byte(t.Day())
	b[3] = byte(t.Hour())
	b[4] = byte(t.Minute())
	b[5] = byte(t.Second())
	_, offset := t.Zone()
	b[6] = byte(offset / (15 * 60))
	return b
}

// encodeUTF16BE encodes a Go string to UCS-2 Big Endian bytes.
func encodeUTF16BE(s string) []byte {
	uint16s := utf16.Encode([]rune(s))
	buf := new(bytes.Buffer)
	for _, rVal := range uint16s {
		_ = binary.Write(buf, binary.BigEndian, rVal)
	}
	return buf.Bytes()
}

// padString pads/truncates a string with spaces for fixed-length ISO string
// fields (d-characters or a-characters, ECMA-119).
func padString(s string, length int) []byte {
	b := make([]byte, length)
	for i := range b {
		b[i] = ' '
	}
	bytesToCopy := len(s)
	if bytesToCopy > length {
		bytesToCopy = length
	}
	copy(b, s[:bytesToCopy])
	return b
}

// padUTF16StringBE encodes a string to UCS-2BE and pads/truncates to fit a
// field specified in characters, padding with 0x0000.
func padUTF16StringBE(s string, numCharsInField int) []byte {
	targetByteLength := numCharsInField * 2
	resultBytes := make([]byte, targetByteLength)

	encodedStringBytes := encodeUTF16BE(s)

	bytesToCopy := len(encodedStringBytes)
	if bytesToCopy > targetByteLength {
		bytesToCopy = targetByteLength
	}
	copy(resultBytes, encodedStringBytes[:bytesToCopy])
	return resultBytes
}

// padUTF16StringBEToFixedBytes pads/truncates a UTF-16BE string for a field
// of fixed total byte length, respecting a maximum character count within
// that byte length (e.g. the Joliet Copyright File Identifier).
func padUTF16StringBEToFixedBytes(s string, maxCharsInString int, totalBytesInField int) []byte {
	if maxCharsInString*2 > totalBytesInField {
		log.PanicIf(newError(KindInvalidInput, "padUTF16StringBEToFixedBytes: maxCharsInString*2 > totalBytesInField", nil))
	}

	resultBytes := make([]byte, totalBytesInField)

	encodedStringBytes := encodeUTF16BE(s)
	maxByteLengthForStringPart := maxCharsInString * 2

	if len(encodedStringBytes) > maxByteLengthForStringPart {
		encodedStringBytes = encodedStringBytes[:maxByteLengthForStringPart]
	}

	copy(resultBytes, encodedStringBytes)
	return resultBytes
}
