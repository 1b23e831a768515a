// Package testutil holds helpers shared by the command-line tests.
package testutil

import "regexp"

// ansiRegex matches CSI escape sequences such as the theme colors.
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// StripAnsiCodes removes terminal escape sequences so that colored reports
// can be compared as plain text.
func StripAnsiCodes(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
