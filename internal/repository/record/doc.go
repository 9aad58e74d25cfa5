// Package record persists the last built release next to the compiler output.
//
// The record is stored as protobuf JSON of a google.protobuf.Struct so it
// stays readable by anything that understands protojson without generated
// types.
package record
