package record

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/banshee-data/tensor.report/internal/tensorize"
)

// Container framing constants. Every multi-byte field is little-endian.
const (
	// formatVersion is bumped on any incompatible layout change.
	formatVersion uint8 = 1

	// pointSize is the wire size of one projected point: x(4) + y(4) + range(4).
	pointSize = 12

	// labelSize is the wire size of one label: class(4) + x(4) + y(4) + w(4) + h(4).
	labelSize = 20

	// frameHeaderSize prefixes each record: payload length(4) + crc32c(4).
	frameHeaderSize = 8
)

// magic identifies a .drec file.
var magic = [4]byte{'D', 'R', 'E', 'C'}

// Decode limits guard against corrupt or hostile length fields. A full
// rotation projects well under 200k points into the camera frustum, and a
// 1920×1280 JPEG stays far below the image cap.
const (
	maxImageBytes = 16 << 20
	maxPoints     = 2_000_000
	maxLabels     = 4096
	maxNameBytes  = 255
)

// crcTable is the Castagnoli polynomial used for record checksums.
var crcTable = crc32.MakeTable(crc32.Castagnoli)

// Frame is one recorded sensor frame: the front-camera image as encoded
// JPEG bytes, the lidar returns already projected into that camera's pixel
// plane, and the frame's bounding-box labels.
type Frame struct {
	Index          uint32
	TimestampNanos int64
	ImageJPEG      []byte
	Points         []tensorize.Point
	Labels         []tensorize.Label
}

// encodePayload serializes a frame body (everything after the record
// header) into a fresh buffer.
func encodePayload(f *Frame) ([]byte, error) {
	if len(f.ImageJPEG) > maxImageBytes {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", len(f.ImageJPEG), maxImageBytes)
	}
	if len(f.Points) > maxPoints {
		return nil, fmt.Errorf("too many points: %d (max %d)", len(f.Points), maxPoints)
	}
	if len(f.Labels) > maxLabels {
		return nil, fmt.Errorf("too many labels: %d (max %d)", len(f.Labels), maxLabels)
	}

	size := 4 + 8 + // index + timestamp
		4 + len(f.ImageJPEG) +
		4 + len(f.Points)*pointSize +
		4 + len(f.Labels)*labelSize
	buf := make([]byte, size)
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], f.Index)
	off += 4
	binary.LittleEndian.PutUint64(buf[off:], uint64(f.TimestampNanos))
	off += 8

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(f.ImageJPEG)))
	off += 4
	off += copy(buf[off:], f.ImageJPEG)

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(f.Points)))
	off += 4
	for _, p := range f.Points {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(p.Range))
		off += pointSize
	}

	binary.LittleEndian.PutUint32(buf[off:], uint32(len(f.Labels)))
	off += 4
	for _, l := range f.Labels {
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(l.Class)))
		binary.LittleEndian.PutUint32(buf[off+4:], uint32(int32(l.X)))
		binary.LittleEndian.PutUint32(buf[off+8:], uint32(int32(l.Y)))
		binary.LittleEndian.PutUint32(buf[off+12:], uint32(int32(l.Width)))
		binary.LittleEndian.PutUint32(buf[off+16:], uint32(int32(l.Height)))
		off += labelSize
	}

	return buf, nil
}

// decodePayload parses a frame body. The buffer must be exactly one
// payload; trailing bytes are an error.
func decodePayload(buf []byte) (*Frame, error) {
	const fixed = 4 + 8 + 4 // index + timestamp + image length
	if len(buf) < fixed {
		return nil, fmt.Errorf("payload truncated: %d bytes", len(buf))
	}

	f := &Frame{}
	off := 0
	f.Index = binary.LittleEndian.Uint32(buf[off:])
	off += 4
	f.TimestampNanos = int64(binary.LittleEndian.Uint64(buf[off:]))
	off += 8

	imageLen := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if imageLen > maxImageBytes {
		return nil, fmt.Errorf("image length %d exceeds cap %d", imageLen, maxImageBytes)
	}
	if off+imageLen+4 > len(buf) {
		return nil, fmt.Errorf("payload truncated inside image (%d bytes)", len(buf))
	}
	if imageLen > 0 {
		f.ImageJPEG = make([]byte, imageLen)
		copy(f.ImageJPEG, buf[off:off+imageLen])
	}
	off += imageLen

	pointCount := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if pointCount > maxPoints {
		return nil, fmt.Errorf("point count %d exceeds cap %d", pointCount, maxPoints)
	}
	if off+pointCount*pointSize+4 > len(buf) {
		return nil, fmt.Errorf("payload truncated inside points (%d bytes)", len(buf))
	}
	if pointCount > 0 {
		f.Points = make([]tensorize.Point, pointCount)
		for i := range f.Points {
			f.Points[i] = tensorize.Point{
				X:     math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])),
				Y:     math.Float32frombits(binary.LittleEndian.Uint32(buf[off+4:])),
				Range: math.Float32frombits(binary.LittleEndian.Uint32(buf[off+8:])),
			}
			off += pointSize
		}
	}

	labelCount := int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	if labelCount > maxLabels {
		return nil, fmt.Errorf("label count %d exceeds cap %d", labelCount, maxLabels)
	}
	if off+labelCount*labelSize != len(buf) {
		return nil, fmt.Errorf("payload length mismatch: %d bytes for %d labels", len(buf)-off, labelCount)
	}
	if labelCount > 0 {
		f.Labels = make([]tensorize.Label, labelCount)
		for i := range f.Labels {
			f.Labels[i] = tensorize.Label{
				Class:  tensorize.LabelClass(int32(binary.LittleEndian.Uint32(buf[off:]))),
				X:      int(int32(binary.LittleEndian.Uint32(buf[off+4:]))),
				Y:      int(int32(binary.LittleEndian.Uint32(buf[off+8:]))),
				Width:  int(int32(binary.LittleEndian.Uint32(buf[off+12:]))),
				Height: int(int32(binary.LittleEndian.Uint32(buf[off+16:]))),
			}
			off += labelSize
		}
	}

	return f, nil
}
