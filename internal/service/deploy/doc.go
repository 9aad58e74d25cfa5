// Package deploy drives a release from toolchain check to push.
//
// Run walks the stages in order:
//
//	Start → EnvCheck → ResolveVersion → Confirm → Build → WriteVersion → Publish → Done
//
// Any failing stage ends the run in Failed with the error returned to the
// caller; a negative answer at the confirmation gate ends it in Cancelled
// with no error. Steps never exit the process themselves.
package deploy
