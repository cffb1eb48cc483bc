package region

import "strings"

// ExtractChapter returns the text of one chapter: its `\c` marker and everything
// up to the next chapter marker.
//
// When the match is the first chapter marker in the document, the text before it
// (the book header: `\id`, `\h`, `\mt` and so on) is included as well; later
// chapters never carry that preamble. A chapter that is not present yields "".
func ExtractChapter(chapterID, text string) string {
	segments := Scan(text, Chapter)
	k := indexOf(segments, chapterID)
	if k < 0 {
		return ""
	}

	var b strings.Builder
	if k == 0 {
		b.WriteString(segments[0].Preceding)
	}
	b.WriteString(segments[k].Marker)
	b.WriteString(segments[k+1].Preceding)
	return b.String()
}

// ExtractVerses narrows chapter text to the verses v1 through v2 inclusive.
//
// If either endpoint is missing the whole chapterText is returned unchanged. If v1
// is the first verse marker of the chapter, the text in front of it (the chapter
// marker and any headings) is kept. A reversed range is read in document order.
func ExtractVerses(v1, v2, chapterText string) string {
	segments := Scan(chapterText, Verse)
	i := indexOf(segments, v1)
	j := indexOf(segments, v2)
	if i < 0 || j < 0 {
		return chapterText
	}
	if j < i {
		i, j = j, i
	}

	var b strings.Builder
	if i == 0 {
		b.WriteString(segments[0].Preceding)
	}
	for k := i; k <= j; k++ {
		b.WriteString(segments[k].Marker)
		b.WriteString(segments[k+1].Preceding)
	}
	return b.String()
}

// Extract applies a selector to the full document text. The result is "" only
// when the chapter is absent.
func Extract(sel Selector, text string) string {
	chapter := ExtractChapter(sel.Chapter, text)
	if chapter == "" || sel.Verses == nil {
		return chapter
	}
	return ExtractVerses(sel.Verses.Start, sel.Verses.End, chapter)
}
