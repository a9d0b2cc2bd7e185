// Package tensorize converts front-camera drive-recording frames into
// fixed-shape float32 training tensors.
//
// Responsibilities: lidar range re-encoding, point splatting into the
// camera plane, lidar/image/heat-map downsampling, ground-truth heat-map
// synthesis from bounding-box labels, and the thresholded per-class
// overlap metric. All dense artifacts are channel-first (C,H,W).
//
// Dependency rule: this package depends only on the tensor library.
// Recording decode, artifact persistence, and orchestration live in
// internal/record and internal/extract.
package tensorize
