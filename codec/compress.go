package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression applied to encoded bytes.
type Compression uint8

const (
	// CompressionNone stores bytes as they are.
	CompressionNone Compression = iota
	// CompressionLZ4 favours speed.
	CompressionLZ4
	// CompressionZstd favours ratio.
	CompressionZstd
)

// ErrCorruptBlock is returned when a compressed block cannot be decoded.
var ErrCorruptBlock = errors.New("codec: corrupt block")

// String returns the stable name of the compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression returns the compression with the given name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return CompressionNone, fmt.Errorf("codec: unknown compression %q", name)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// Block layout: [uncompressed size uint32][compressed size uint32][data].
// A compressed size of 0 marks data stored uncompressed.
const blockHeaderSize = 8

// Compress returns src compressed into a self-describing block. With
// CompressionNone src is returned unchanged.
func (c Compression) Compress(src []byte) ([]byte, error) {
	if c == CompressionNone {
		return src, nil
	}
	if uint64(len(src)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("codec: block of %d bytes too large", len(src))
	}

	var (
		packed []byte
		err    error
	)
	switch c {
	case CompressionLZ4:
		packed, err = compressLZ4(src)
	case CompressionZstd:
		packed, err = compressZstd(src)
	default:
		return nil, fmt.Errorf("codec: unknown compression %s", c)
	}
	if err != nil {
		return nil, err
	}

	if len(packed) == 0 || len(packed) >= len(src) {
		out := make([]byte, blockHeaderSize+len(src))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(src)))
		copy(out[blockHeaderSize:], src)
		return out, nil
	}

	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(src)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

// Decompress reverses Compress.
func (c Compression) Decompress(src []byte) ([]byte, error) {
	if c == CompressionNone {
		return src, nil
	}
	if len(src) < blockHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptBlock, len(src))
	}

	size := binary.LittleEndian.Uint32(src[0:])
	packedSize := binary.LittleEndian.Uint32(src[4:])
	body := src[blockHeaderSize:]

	if packedSize == 0 {
		if uint32(len(body)) != size {
			return nil, fmt.Errorf("%w: stored block size mismatch", ErrCorruptBlock)
		}
		return body, nil
	}
	if uint32(len(body)) != packedSize {
		return nil, fmt.Errorf("%w: compressed block size mismatch", ErrCorruptBlock)
	}

	out := make([]byte, size)
	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if uint32(n) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return out, nil
	case CompressionZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)

		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBlock, err)
		}
		if uint32(len(decoded)) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlock)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("codec: unknown compression %s", c)
	}
}

func compressLZ4(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func compressZstd(src []byte) ([]byte, error) {
	enc, err := getZstdEncoder()
	if err != nil {
		return nil, err
	}
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(src, nil), nil
}
