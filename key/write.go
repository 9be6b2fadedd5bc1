package key

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/ulikunitz/xz/lzma"

	"github.com/aurora-toolkit/core/resref"
)

// Entry is one resource to place inside a data archive when writing.
type Entry struct {
	ID   resref.Identity
	Data []byte
}

// DataArchiveSpec names one data archive and the entries it holds,
// for Write/WriteBZF to emit alongside the KEY's directory table.
type DataArchiveSpec struct {
	Name    string
	Writer  io.Writer
	Entries []Entry
}

// Write emits a KEY file to keyW referencing the given data archives,
// and a BIF body to each archive's Writer. Payloads within each BIF
// are 4-byte aligned.
func Write(keyW io.Writer, archives []DataArchiveSpec) error {
	return write(keyW, archives, false)
}

// WriteBZF is identical to Write except every payload is individually
// compressed with a raw LZMA1 stream (no container) and the data
// archives carry the BZF signature.
func WriteBZF(keyW io.Writer, archives []DataArchiveSpec) error {
	return write(keyW, archives, true)
}

func write(keyW io.Writer, archives []DataArchiveSpec, compressed bool) error {
	var fileTable bytes.Buffer
	var filenames bytes.Buffer
	var keyTable bytes.Buffer

	type placement struct {
		archiveIndex uint32
		inArchive    uint32
	}
	placements := make([][]placement, len(archives))

	for i, a := range archives {
		filenames.WriteString(a.Name)
		filenames.WriteByte(0)

		writeU32(&fileTable, uint32(archiveBodySize(a, compressed)))
		writeU32(&fileTable, 0) // filename offset: fixed up below
		writeU32(&fileTable, uint32(len(a.Name)))

		placements[i] = make([]placement, len(a.Entries))
		for j := range a.Entries {
			placements[i][j] = placement{archiveIndex: uint32(i), inArchive: uint32(j)}
		}
	}

	// Filenames are emitted right after the file table, so fix up the
	// per-row filename offsets now that we know the file table's total
	// size (filenames table begins immediately after it).
	fileTableBytes := fileTable.Bytes()
	filenameTableBase := fileTableOffset0 + uint32(len(fileTableBytes))
	runningNameOffset := uint32(0)
	for i := range archives {
		row := fileTableBytes[i*fileTableEntrySz:]
		binary.LittleEndian.PutUint32(row[4:8], filenameTableBase+runningNameOffset)
		runningNameOffset += uint32(len(archives[i].Name)) + 1
	}

	resourceCount := 0
	for _, a := range archives {
		resourceCount += len(a.Entries)
	}

	for i, a := range archives {
		for j, e := range a.Entries {
			name := e.ID.Name
			if len(name) > 16 {
				name = name[:16]
			}
			keyTable.Write(padASCII(name, 16))
			writeU16(&keyTable, e.ID.Type.ID)
			packed := (placements[i][j].archiveIndex << 20) | (placements[i][j].inArchive & 0xFFFFF)
			writeU32(&keyTable, packed)
		}
	}

	keyTableOffset := filenameTableBase + uint32(filenames.Len())

	var header bytes.Buffer
	header.WriteString(keySignature)
	header.WriteString(keyVersion)
	writeU32(&header, uint32(len(archives)))
	writeU32(&header, uint32(resourceCount))
	writeU32(&header, fileTableOffset0)
	writeU32(&header, keyTableOffset)
	year, day := creationStamp()
	writeU32(&header, year)
	writeU32(&header, day)
	header.Write(make([]byte, 32)) // reserved

	if _, err := keyW.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := keyW.Write(fileTableBytes); err != nil {
		return err
	}
	if _, err := keyW.Write(filenames.Bytes()); err != nil {
		return err
	}
	if _, err := keyW.Write(keyTable.Bytes()); err != nil {
		return err
	}

	for _, a := range archives {
		if err := writeDataArchive(a, compressed); err != nil {
			return err
		}
	}
	return nil
}

// archiveBodySize precomputes the on-disk size of a data archive body
// so the KEY file table's "archive size" field is accurate without a
// second pass.
func archiveBodySize(a DataArchiveSpec, compressed bool) int {
	size := bifHeaderSize + len(a.Entries)*bifEntrySize
	for _, e := range a.Entries {
		payload := e.Data
		if compressed {
			payload = mustCompress(payload)
		}
		size += align4(len(payload))
	}
	return size
}

func writeDataArchive(a DataArchiveSpec, compressed bool) error {
	var body bytes.Buffer
	body.WriteString(archiveSignature(compressed))
	writeU32(&body, uint32(len(a.Entries)))
	writeU32(&body, 0) // fixed-resource count: unused by this writer
	tableOffset := bifHeaderSize
	writeU32(&body, uint32(tableOffset))

	payloads := make([][]byte, len(a.Entries))
	offset := uint32(bifHeaderSize + len(a.Entries)*bifEntrySize)
	for i, e := range a.Entries {
		payload := e.Data
		if compressed {
			var err error
			payload, err = compressLZMA1(e.Data)
			if err != nil {
				return err
			}
		}
		payloads[i] = payload

		writeU32(&body, uint32(i))
		writeU32(&body, offset)
		writeU32(&body, uint32(len(e.Data))) // uncompressed size always
		writeU32(&body, uint32(e.ID.Type.ID))

		offset += uint32(align4(len(payload)))
	}

	for _, p := range payloads {
		body.Write(p)
		if pad := align4(len(p)) - len(p); pad > 0 {
			body.Write(make([]byte, pad))
		}
	}

	_, err := a.Writer.Write(body.Bytes())
	return err
}

func archiveSignature(compressed bool) string {
	if compressed {
		return bzfSignature
	}
	return bifSignature
}

// compressLZMA1 produces the raw LZMA1 bitstream for data: the
// classic header the encoder writes is stripped, leaving only the
// EOS-marker-terminated stream the BZF format stores.
func compressLZMA1(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{
		Properties:   &lzma.Properties{LC: 3, LP: 0, PB: 2},
		DictCap:      lzmaDictCap,
		SizeInHeader: false,
		EOSMarker:    true,
	}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes()[lzmaHeaderSize:], nil
}

func mustCompress(data []byte) []byte {
	out, err := compressLZMA1(data)
	if err != nil {
		// Compression of an in-memory buffer only fails on programmer
		// error (bad config); sizing is a best-effort estimate anyway.
		return data
	}
	return out
}

func align4(n int) int {
	if n%payloadAlignment == 0 {
		return n
	}
	return n + (payloadAlignment - n%payloadAlignment)
}

func padASCII(s string, width int) []byte {
	buf := make([]byte, width)
	copy(buf, s)
	return buf
}

func writeU32(w *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func writeU16(w *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

// creationStamp returns the current year and day-of-year, matching the
// KEY header's creation timestamp fields.
func creationStamp() (uint32, uint32) {
	now := time.Now()
	return uint32(now.Year()), uint32(now.YearDay())
}
