package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/banshee-data/tensor.report/internal/fsutil"
)

// Writer streams frames into a .drec container. Not safe for concurrent
// use; recordings are produced by a single ingest loop.
type Writer struct {
	w      io.WriteCloser
	frames int
}

// Create opens path for writing through the given filesystem and emits the
// container header. name identifies the recording (typically the drive
// segment) and is limited to 255 bytes.
func Create(fs fsutil.FileSystem, path, name string) (*Writer, error) {
	if len(name) > maxNameBytes {
		return nil, fmt.Errorf("recording name too long: %d bytes (max %d)", len(name), maxNameBytes)
	}
	f, err := fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording: %w", err)
	}
	w, err := NewWriter(f, name)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter wraps an open stream and emits the container header.
func NewWriter(w io.WriteCloser, name string) (*Writer, error) {
	if len(name) > maxNameBytes {
		return nil, fmt.Errorf("recording name too long: %d bytes (max %d)", len(name), maxNameBytes)
	}
	header := make([]byte, 0, len(magic)+1+2+len(name))
	header = append(header, magic[:]...)
	header = append(header, formatVersion)
	var nameLen [2]byte
	binary.LittleEndian.PutUint16(nameLen[:], uint16(len(name)))
	header = append(header, nameLen[:]...)
	header = append(header, name...)

	if _, err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: w}, nil
}

// Append serializes one frame and writes it with its length and checksum.
func (w *Writer) Append(f *Frame) error {
	if f == nil {
		return fmt.Errorf("nil frame")
	}
	payload, err := encodePayload(f)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", f.Index, err)
	}

	var header [frameHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[4:], crc32.Checksum(payload, crcTable))

	if _, err := w.w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame %d header: %w", f.Index, err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("write frame %d payload: %w", f.Index, err)
	}
	w.frames++
	return nil
}

// FrameCount returns the number of frames appended so far.
func (w *Writer) FrameCount() int { return w.frames }

// Close flushes and closes the underlying stream.
func (w *Writer) Close() error { return w.w.Close() }
