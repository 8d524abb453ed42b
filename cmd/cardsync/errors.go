package main

import (
	"errors"
	"strings"
)

// formatError renders err followed by one indented line per cause. Each
// line shows only the text its cause does not already repeat.
func formatError(err error) string {
	var msgs []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		msgs = append(msgs, e.Error())
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i+1 < len(msgs) {
			if trimmed := strings.TrimSuffix(msg, ": "+msgs[i+1]); trimmed != "" {
				msg = trimmed
			}
		}
		if i == 0 {
			b.WriteString("error: ")
		} else {
			b.WriteString("  ↳ ")
		}
		b.WriteString(msg)
		b.WriteByte('\n')
	}
	return b.String()
}
