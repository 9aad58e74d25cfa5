// Package integration holds end-to-end tests that deploy into a real git repository
// using a scripted stand-in for the compiler CLI.
package integration
