// Package envcheck verifies the compiler and git executables are callable.
package envcheck
