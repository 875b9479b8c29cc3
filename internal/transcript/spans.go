package transcript

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Span maps a rune range of the rendered transcript text to the line that
// produced it. Start is a rune offset, Length a rune count.
type Span struct {
	Start  int   `json:"start"`
	Length int   `json:"length"`
	LineID int64 `json:"line_id"`
}

// SpanIndex is the ordered (text span, line ID) segment list for a rendered
// transcript: an explicit provenance structure in place of out-of-band text
// attributes.
type SpanIndex struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans"`
}

// BuildSpanIndex renders lines one per row, newline separated, and records
// the rune span each line occupies.
func BuildSpanIndex(lines []Line) SpanIndex {
	var b strings.Builder
	spans := make([]Span, 0, len(lines))

	offset := 0
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
			offset++
		}
		n := utf8.RuneCountInString(l.Text)
		spans = append(spans, Span{Start: offset, Length: n, LineID: l.ID})
		b.WriteString(l.Text)
		offset += n
	}

	return SpanIndex{Text: b.String(), Spans: spans}
}

// LineAt returns the ID of the line covering the given rune offset.
// Separator positions and offsets past the end report ok == false.
func (ix SpanIndex) LineAt(offset int) (int64, bool) {
	i := sort.Search(len(ix.Spans), func(i int) bool {
		return ix.Spans[i].Start+ix.Spans[i].Length > offset
	})
	if i >= len(ix.Spans) || offset < ix.Spans[i].Start {
		return 0, false
	}
	return ix.Spans[i].LineID, true
}
