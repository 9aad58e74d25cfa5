package firmware

import "time"

// Release describes a built firmware image and what happened to it.
type Release struct {
	// Version is the resolved version string.
	Version string
	// Sketch is the source file that was compiled.
	Sketch string
	// Board is the fully qualified board name.
	Board string
	// Artifact is the compiler output the firmware was copied from.
	Artifact string
	// Firmware is the published copy.
	Firmware string
	// Size is the firmware size in bytes.
	Size int64
	// Checksum is the base64 SHA-512 of the firmware.
	Checksum string
	// BuiltAt is when the copy was made.
	BuiltAt time.Time
	// Published is set once the push succeeded.
	Published bool
	// CommitMessage is the message used for the release commit.
	CommitMessage string
}

// CommitMessage renders the release commit message for version.
func CommitMessage(version string) string {
	return "Release version " + version
}
