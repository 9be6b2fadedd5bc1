package key

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// BZF payloads are raw LZMA1 bitstreams: no 13-byte classic header
// (no properties byte, no dictionary size, no length field), LZMA1
// default properties (lc=3, lp=0, pb=2), terminated by the
// end-of-stream marker rather than a length prefix. The lzma package
// only speaks the classic headered format, so the writer strips the
// header it emits and the reader synthesizes one before decoding.
const (
	lzmaHeaderSize = 13
	lzmaPropsByte  = 0x5D // (pb*5 + lp)*9 + lc for the defaults above
	lzmaDictCap    = 1 << 23
)

// decompressBZFPayload reads the raw LZMA1 stream starting at offset
// in data, decodes it, and checks the result against the uncompressed
// size recorded in the variable resource table.
func decompressBZFPayload(data []byte, offset, uncompressedSize uint32) ([]byte, error) {
	if uint64(offset) > uint64(len(data)) {
		return nil, ErrSizeMismatch
	}

	header := make([]byte, lzmaHeaderSize)
	header[0] = lzmaPropsByte
	binary.LittleEndian.PutUint32(header[1:5], lzmaDictCap)
	// Unknown uncompressed size: the stream ends at its EOS marker.
	binary.LittleEndian.PutUint64(header[5:13], ^uint64(0))

	cfg := lzma.ReaderConfig{DictCap: lzmaDictCap}
	r, err := cfg.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(data[offset:])))
	if err != nil {
		return nil, err
	}

	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	if uint32(n) != uncompressedSize {
		return nil, ErrSizeMismatch
	}
	return out, nil
}
