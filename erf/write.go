package erf

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"
)

// Write serializes every resource currently in the capsule (directory
// entries plus any pending Set edits) to w in this capsule's Kind
// layout. It always emits a fresh directory; there is no incremental
// in-place update path.
func (c *Capsule) Write(w io.Writer) error {
	switch c.kind {
	case KindRIM:
		return c.writeRIM(w)
	default:
		return c.writeERF(w)
	}
}

func (c *Capsule) writeERF(w io.Writer) error {
	entries := c.Iter()

	var keyList bytes.Buffer
	var resourceList bytes.Buffer
	var payloads bytes.Buffer

	dataOffset := uint32(erfHeaderSize) + uint32(len(entries))*(erfKeyEntrySz+erfResEntrySz)

	for i, e := range entries {
		data, err := c.Get(e.ID)
		if err != nil {
			return err
		}

		name := e.ID.Name
		if len(name) > 16 {
			name = name[:16]
		}
		keyList.Write(padASCII(name, 16))
		writeU32(&keyList, uint32(i)) // resource id: positional
		writeU16(&keyList, e.ID.Type.ID)
		writeU16(&keyList, 0) // unused

		writeU32(&resourceList, dataOffset)
		writeU32(&resourceList, uint32(len(data)))

		payloads.Write(data)
		dataOffset += uint32(len(data))
	}

	sig := map[Kind]string{KindERF: "ERF ", KindMOD: "MOD ", KindSAV: "SAV "}[c.kind]
	if sig == "" {
		sig = "ERF "
	}

	keyListOffset := uint32(erfHeaderSize)
	resourceListOffset := keyListOffset + uint32(keyList.Len())
	year, day := creationStamp()

	// The header is a fixed 160-byte block; fields are written at
	// their canonical offsets rather than built up incrementally, so
	// the key/resource list offsets at 64/68 are never in question.
	header := make([]byte, erfHeaderSize)
	copy(header[0:4], sig)
	copy(header[4:8], erfVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(entries)))  // EntryCount
	binary.LittleEndian.PutUint32(header[12:16], 0)                    // LocalizedStringSize
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(entries))) // LanguageCount: unused
	binary.LittleEndian.PutUint32(header[20:24], uint32(len(entries)))
	binary.LittleEndian.PutUint32(header[24:28], year)
	binary.LittleEndian.PutUint32(header[28:32], day)
	binary.LittleEndian.PutUint32(header[32:36], 0xFFFFFFFF) // DescriptionStrRef: none
	binary.LittleEndian.PutUint32(header[64:68], keyListOffset)
	binary.LittleEndian.PutUint32(header[68:72], resourceListOffset)

	if _, err := w.Write(header); err != nil {
		return err
	}
	if _, err := w.Write(keyList.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(resourceList.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payloads.Bytes())
	return err
}

func (c *Capsule) writeRIM(w io.Writer) error {
	entries := c.Iter()

	var table bytes.Buffer
	var payloads bytes.Buffer
	dataOffset := uint32(rimHeaderSize) + uint32(len(entries))*rimEntrySz

	for i, e := range entries {
		data, err := c.Get(e.ID)
		if err != nil {
			return err
		}

		name := e.ID.Name
		if len(name) > 16 {
			name = name[:16]
		}
		table.Write(padASCII(name, 16))
		writeU16(&table, e.ID.Type.ID)
		writeU16(&table, 0) // unused
		writeU32(&table, uint32(i))
		writeU32(&table, dataOffset)
		writeU32(&table, uint32(len(data)))

		payloads.Write(data)
		dataOffset += uint32(len(data))
	}

	var header bytes.Buffer
	header.WriteString("RIM ")
	header.WriteString(rimVersion)
	header.Write(make([]byte, 8)) // reserved
	writeU32(&header, uint32(len(entries)))
	writeU32(&header, rimHeaderSize)
	header.Write(make([]byte, rimHeaderSize-header.Len()))

	if _, err := w.Write(header.Bytes()); err != nil {
		return err
	}
	if _, err := w.Write(table.Bytes()); err != nil {
		return err
	}
	_, err := w.Write(payloads.Bytes())
	return err
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

func creationStamp() (uint32, uint32) {
	now := time.Now()
	return uint32(now.Year()), uint32(now.YearDay())
}
