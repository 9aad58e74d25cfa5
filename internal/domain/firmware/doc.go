// Package firmware contains the core domain rules of a firmware release:
// how the next version is derived and what a built release looks like.
package firmware
