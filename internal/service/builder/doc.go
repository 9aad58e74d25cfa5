// Package builder compiles the sketch and publishes the artifact to the
// fixed firmware path.
//
// The copy goes through go-update: the image is checksummed with SHA-512,
// written next to the target and renamed over it, so a failed copy never
// leaves a half-written firmware file behind.
package builder
