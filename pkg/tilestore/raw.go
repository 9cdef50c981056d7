package tilestore

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"gonum.org/v1/gonum/mat"
)

const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
	CompressionZstd = "zstd"

	maxHeaderSize = 1 << 12
	maxPixels     = 1 << 30
)

var (
	// ErrChecksum is returned when a raw tile does not match its checksum.
	ErrChecksum = errors.New("tile checksum mismatch")
	// ErrRawFormat is returned for a malformed raw tile.
	ErrRawFormat = errors.New("malformed raw tile")
)

type rawHeader struct {
	Rows        int    `cbor:"rows"`
	Cols        int    `cbor:"cols"`
	Compression string `cbor:"compression"`
	Checksum    []byte `cbor:"checksum"`
}

// Raw stores tiles without loss: a CBOR header followed by the float64
// pixels in little endian, row by row, optionally compressed. The header
// carries a BLAKE3 checksum of the uncompressed pixels.
type Raw struct {
	Compression string
}

func (Raw) Ext() string {
	return "tile"
}

func (c Raw) Encode(w io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	payload := make([]byte, 8*rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint64(payload[8*(i*cols+j):], math.Float64bits(m.At(i, j)))
		}
	}
	sum := blake3.Sum256(payload)

	compression := c.Compression
	if compression == "" {
		compression = CompressionNone
	}
	body, err := compress(compression, payload)
	if err != nil {
		return err
	}

	header, err := cbor.Marshal(rawHeader{Rows: rows, Cols: cols, Compression: compression, Checksum: sum[:]})
	if err != nil {
		return errors.Wrap(err, "unable to encode tile header")
	}

	var size [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(size[:], uint64(len(header)))
	for _, part := range [][]byte{size[:n], header, body} {
		if _, err := w.Write(part); err != nil {
			return errors.Wrap(err, "unable to write tile")
		}
	}

	return nil
}

func compress(compression string, payload []byte) ([]byte, error) {
	switch compression {
	case CompressionNone:
		return payload, nil
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, errors.Wrap(err, "unable to compress tile with lz4")
		}
		if err := zw.Close(); err != nil {
			return nil, errors.Wrap(err, "unable to compress tile with lz4")
		}

		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create zstd encoder")
		}
		defer enc.Close()

		return enc.EncodeAll(payload, make([]byte, 0, len(payload)/2)), nil
	default:
		return nil, errors.Errorf("unknown compression %q", compression)
	}
}

func (Raw) Decode(r io.Reader) (*mat.Dense, error) {
	br := bufio.NewReader(r)
	size, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, errors.Wrapf(ErrRawFormat, "header size: %v", err)
	}
	if size == 0 || size > maxHeaderSize {
		return nil, errors.Wrapf(ErrRawFormat, "header size %d", size)
	}
	rawHead := make([]byte, size)
	if _, err := io.ReadFull(br, rawHead); err != nil {
		return nil, errors.Wrapf(ErrRawFormat, "header: %v", err)
	}
	var header rawHeader
	if err := cbor.Unmarshal(rawHead, &header); err != nil {
		return nil, errors.Wrapf(ErrRawFormat, "header: %v", err)
	}
	if header.Rows <= 0 || header.Cols <= 0 || header.Rows > maxPixels/header.Cols {
		return nil, errors.Wrapf(ErrRawFormat, "shape %dx%d", header.Cols, header.Rows)
	}

	payload := make([]byte, 8*header.Rows*header.Cols)
	if err := decompress(header.Compression, br, payload); err != nil {
		return nil, err
	}
	if sum := blake3.Sum256(payload); !bytes.Equal(sum[:], header.Checksum) {
		return nil, ErrChecksum
	}

	data := make([]float64, header.Rows*header.Cols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(payload[8*i:]))
	}

	return mat.NewDense(header.Rows, header.Cols, data), nil
}

func decompress(compression string, r io.Reader, payload []byte) error {
	var src io.Reader
	switch compression {
	case CompressionNone:
		src = r
	case CompressionLZ4:
		src = lz4.NewReader(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return errors.Wrap(err, "unable to create zstd decoder")
		}
		defer dec.Close()
		src = dec
	default:
		return errors.Wrapf(ErrRawFormat, "unknown compression %q", compression)
	}
	if _, err := io.ReadFull(src, payload); err != nil {
		return errors.Wrapf(ErrRawFormat, "payload: %v", err)
	}

	return nil
}
