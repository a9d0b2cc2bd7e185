// Package record owns the .drec drive-recording container: a length-prefixed
// little-endian binary format holding, per frame, the front-camera JPEG,
// the camera-plane lidar projection, and the bounding-box labels.
//
// Responsibilities: the frame payload codec, streaming Writer/Reader with
// per-record checksums, and a deterministic synthetic recording generator
// for tests and tooling.
//
// Dependency rule: record may depend on tensorize (for the Point and Label
// vocabulary) but never on extract or higher layers.
package record
