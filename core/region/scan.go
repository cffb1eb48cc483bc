// Package region carves chapter and verse regions out of USFM-style text.
//
// A region starts at a marker such as `\c 3` or `\v 12` and runs up to the next
// marker of the same kind or the end of the text. Extraction is a pure function
// of (text, selector); anomalies such as a missing chapter are reported as empty
// text rather than as errors.
package region

import "strings"

// Kind identifies the structural marker a scan splits on.
type Kind string

const (
	// Chapter is the `\c` marker.
	Chapter Kind = "c"
	// Verse is the `\v` marker.
	Verse Kind = "v"
)

// Segment is one step of a marker scan: the text that precedes a marker and the
// marker itself. The last segment of every scan has an empty Marker and holds the
// trailing text.
type Segment struct {
	Preceding string
	Marker    string
}

// HasMarker reports whether the segment ends in a marker.
func (s Segment) HasMarker() bool {
	return s.Marker != ""
}

// ID returns the marker label, which is always the second whitespace-separated
// token of the marker. ok is false for a marker line that carries no label.
func (s Segment) ID() (id string, ok bool) {
	fields := strings.Fields(s.Marker)
	if len(fields) < 2 {
		return "", false
	}
	return fields[1], true
}

// Scan splits text on markers of the given kind in a single pass.
//
// For n markers the result holds n+1 segments, and concatenating Preceding+Marker
// over all segments reproduces text exactly. The body of the marker in segment k
// is segments[k+1].Preceding.
//
// A marker is a backslash, the kind tag and a space or tab, starting at the
// beginning of text or after whitespace; a backslash glued to the preceding word
// is body text. It extends to the end
// of its line (the newline is left in the following text) but stops early if
// another marker of the same kind starts on the same line.
func Scan(text string, kind Kind) []Segment {
	var segments []Segment
	start := 0
	for i := 0; i < len(text); {
		if !markerAt(text, i, kind) {
			i++
			continue
		}
		end := markerEnd(text, i, kind)
		segments = append(segments, Segment{
			Preceding: text[start:i],
			Marker:    text[i:end],
		})
		start = end
		i = end
	}
	return append(segments, Segment{Preceding: text[start:]})
}

func markerAt(text string, i int, kind Kind) bool {
	if text[i] != '\\' || (i > 0 && !isSpace(text[i-1])) {
		return false
	}
	tag := string(kind)
	sep := i + 1 + len(tag)
	if sep >= len(text) || text[i+1:sep] != tag {
		return false
	}
	return text[sep] == ' ' || text[sep] == '\t'
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func markerEnd(text string, i int, kind Kind) int {
	// Skip past the tag so the marker does not terminate itself.
	j := i + 1 + len(kind)
	for j < len(text) {
		if text[j] == '\n' || markerAt(text, j, kind) {
			return j
		}
		j++
	}
	return j
}

// indexOf returns the index of the first segment whose marker is labelled id,
// or -1. Unlabelled markers are skipped.
func indexOf(segments []Segment, id string) int {
	for k, seg := range segments {
		if !seg.HasMarker() {
			continue
		}
		if label, ok := seg.ID(); ok && label == id {
			return k
		}
	}
	return -1
}

// Join reassembles scanned segments into text.
func Join(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Preceding)
		b.WriteString(seg.Marker)
	}
	return b.String()
}
