package logger

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// ErrorEntry is one link of an error chain.
type ErrorEntry struct {
	Message  string
	Metadata map[string]any
}

// collectErrorEntries walks err and returns one entry per message-carrying link.
// zerr links contribute their own message and metadata; a standard error ends
// the walk with its full text. Joined errors contribute every branch in order.
func collectErrorEntries(err error) []ErrorEntry {
	var entries []ErrorEntry

	current := err
	for current != nil {
		if joined, ok := current.(interface{ Unwrap() []error }); ok { //nolint:errorlint // manual traversal
			for _, branch := range joined.Unwrap() {
				entries = append(entries, collectErrorEntries(branch)...)
			}
			return entries
		}

		z, ok := current.(*zerr.Error) //nolint:errorlint // each link is inspected individually
		if !ok {
			return append(entries, ErrorEntry{Message: current.Error()})
		}

		meta := z.Metadata()
		switch {
		case z.Message() != "":
			entries = append(entries, ErrorEntry{Message: z.Message(), Metadata: meta})
		case len(entries) > 0 && len(meta) > 0:
			// A bare metadata link belongs to the message above it.
			last := &entries[len(entries)-1]
			last.Metadata = mergeMetadata(last.Metadata, meta)
		case len(meta) > 0:
			// Leading metadata link: carried onto the first message below.
			next := collectErrorEntries(errors.Unwrap(current))
			if len(next) > 0 {
				next[0].Metadata = mergeMetadata(next[0].Metadata, meta)
			}
			return append(entries, next...)
		}

		current = errors.Unwrap(current)
	}

	return entries
}

func mergeMetadata(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// formatErrorEntries renders entries as an "Error:" headline followed by a
// "Caused by:" list. Metadata is printed under each message, sorted by key.
func formatErrorEntries(entries []ErrorEntry) string {
	var lines []string

	for i, entry := range entries {
		msgLines := strings.Split(entry.Message, "\n")

		var head, indent string
		if i == 0 {
			head = "Error: "
			indent = "       "
		} else {
			if i == 1 {
				lines = append(lines, "", "  Caused by:")
			}
			head = "    → "
			indent = "      "
		}

		lines = append(lines, head+msgLines[0])
		for _, line := range msgLines[1:] {
			lines = append(lines, indent+line)
		}

		keys := make([]string, 0, len(entry.Metadata))
		for k := range entry.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s%s: %v", indent, k, entry.Metadata[k]))
		}
	}

	return strings.Join(lines, "\n")
}
