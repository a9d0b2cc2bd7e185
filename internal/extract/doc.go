// Package extract drives the conversion of recorded drive frames into
// training tensor artifacts on disk.
//
// Responsibilities:
//   - decode each frame's camera image and build its image tensor
//   - run the tensorize pipeline (splat, downsample, heat maps) per frame
//   - persist the four artifacts of every frame as gzipped gob blobs,
//     optionally mirrored as .npy files
//   - redistribute finished frame bundles into train/val/test splits
//
// Dependency rule: extract may depend on tensorize, record, config,
// fsutil, security, and monitoring. The manifest store and report layers
// sit above extract and are wired in through the Recorder interface;
// extract never imports them.
package extract
