package arena

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec selects how the used region of the buffer is stored in a snapshot.
type Codec uint8

const (
	// CodecNone stores the used region verbatim.
	CodecNone Codec = 0
	// CodecLZ4 stores the used region as an LZ4 block (fast, good for hot data).
	CodecLZ4 Codec = 1
	// CodecZstd stores the used region as a zstd frame (better ratio).
	CodecZstd Codec = 2
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithEncoderConcurrency(1))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	return dec
}

// encodePayload compresses data. The returned codec is CodecNone when the data
// did not compress.
func encodePayload(c Codec, data []byte) ([]byte, Codec, error) {
	if len(data) == 0 {
		return nil, CodecNone, nil
	}

	switch c {
	case CodecNone:
		return data, CodecNone, nil
	case CodecLZ4:
		compressed := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, compressed, nil)
		if err != nil {
			return nil, c, err
		}
		if n == 0 {
			// Incompressible
			return data, CodecNone, nil
		}
		return compressed[:n], CodecLZ4, nil
	case CodecZstd:
		enc := getZstdEncoder()
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), CodecZstd, nil
	default:
		return nil, c, ErrUnsupportedCodec
	}
}

// decodePayload decompresses payload into dst, which has the exact
// uncompressed length.
func decodePayload(c Codec, payload, dst []byte) error {
	switch c {
	case CodecNone:
		if len(payload) != len(dst) {
			return errors.New("stored payload size mismatch")
		}
		copy(dst, payload)
		return nil
	case CodecLZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return err
		}
		if n != len(dst) {
			return errors.New("decompressed size mismatch")
		}
		return nil
	case CodecZstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(payload, dst[:0])
		if err != nil {
			return err
		}
		if len(decoded) != len(dst) {
			return errors.New("decompressed size mismatch")
		}
		copy(dst, decoded)
		return nil
	default:
		return ErrUnsupportedCodec
	}
}
