// Package utils provides shared utilities for text and logging.
package utils

import "github.com/mattn/go-runewidth"

const ellipsis = "..."

// Truncate shortens s to at most width terminal columns and appends "..." when
// anything was cut. Wide runes count as two columns and are never split.
// A width of 0 or less leaves s unchanged.
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "") + ellipsis
}
