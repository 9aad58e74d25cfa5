// Package marker reads and writes the version marker devices poll.
package marker
