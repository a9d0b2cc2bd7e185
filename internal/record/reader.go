package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/banshee-data/tensor.report/internal/fsutil"
)

// ErrBadMagic reports a stream that is not a .drec container.
var ErrBadMagic = errors.New("not a drec recording")

// ErrChecksum reports a frame whose payload fails checksum validation.
var ErrChecksum = errors.New("frame checksum mismatch")

// maxPayloadBytes caps a single record's declared length before any
// allocation happens.
const maxPayloadBytes = maxImageBytes + maxPoints*pointSize + maxLabels*labelSize + 64

// Reader streams frames out of a .drec container.
type Reader struct {
	r    io.ReadCloser
	name string
}

// Open opens a recording through the given filesystem and parses the
// container header.
func Open(fs fsutil.FileSystem, path string) (*Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// NewReader wraps an open stream and parses the container header.
func NewReader(r io.ReadCloser) (*Reader, error) {
	var head [len(magic) + 1 + 2]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(head[:4]) != magic {
		return nil, ErrBadMagic
	}
	if version := head[4]; version != formatVersion {
		return nil, fmt.Errorf("unsupported recording version %d (want %d)", version, formatVersion)
	}
	nameLen := int(binary.LittleEndian.Uint16(head[5:]))
	if nameLen > maxNameBytes {
		return nil, fmt.Errorf("recording name length %d exceeds cap %d", nameLen, maxNameBytes)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("read recording name: %w", err)
	}
	return &Reader{r: r, name: string(name)}, nil
}

// Name returns the recording name from the container header.
func (r *Reader) Name() string { return r.name }

// Next returns the next frame, or io.EOF after the last one. A short read
// mid-record or a checksum failure is a hard error; recordings are not
// resynchronized.
func (r *Reader) Next() (*Frame, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame header: %w", err)
	}

	payloadLen := int(binary.LittleEndian.Uint32(header[0:]))
	wantCRC := binary.LittleEndian.Uint32(header[4:])
	if payloadLen > maxPayloadBytes {
		return nil, fmt.Errorf("frame payload length %d exceeds cap %d", payloadLen, maxPayloadBytes)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	if got := crc32.Checksum(payload, crcTable); got != wantCRC {
		return nil, fmt.Errorf("%w: got %08x, want %08x", ErrChecksum, got, wantCRC)
	}

	return decodePayload(payload)
}

// Close closes the underlying stream.
func (r *Reader) Close() error { return r.r.Close() }
