// Package publisher commits the firmware and version marker and pushes them
// to the branch devices poll.
package publisher
