// Package process runs external tools and captures what they print.
//
// Every step of the deploy talks to the compiler and git only through the
// Runner interface, so tests swap ExecRunner for a scripted fake.
package process
