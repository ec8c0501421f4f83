// Package logging provides opt-in file-based logging with rotation for cogmem.
// When debug mode is enabled, structured logs are written to a rotating file
// under the process's state directory; by default logging stays minimal on
// stderr only.
package logging
