// Package version carries build metadata injected at link time, e.g.
// -ldflags "-X .../internal/version.Version=v0.3.0".
package version

var (
	// Version is the release or branch the binary was built from.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build metadata as a single log-friendly token.
func String() string {
	return Version + "+" + GitSHA
}
