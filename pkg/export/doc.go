// Package export writes accumulated scan results to timestamped text
// files, one flag line per row.
package export
