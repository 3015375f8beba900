package prune

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/jward/prune/internal/syntax"
)

// scriptTypes are the <script type="..."> values pruned as JavaScript.
var scriptTypes = map[string]bool{
	"":                       true,
	"module":                 true,
	"text/javascript":        true,
	"application/javascript": true,
	"text/ecmascript":        true,
	"application/ecmascript": true,
}

// PruneHTML prunes the inline scripts of an HTML document. Only the script
// bodies change; every other byte of src is kept as is.
func (e *Engine) PruneHTML(ctx context.Context, src []byte) (*Result, error) {
	return e.PruneSource(ctx, syntax.HTML, src)
}

// inlineScript is the location of one script body in the raw document.
type inlineScript struct {
	start, end int
	row, col   int // position of start
	prunable   bool
}

func (e *Engine) pruneHTML(ctx context.Context, src []byte, pred Predicate) ([]byte, []Removal, error) {
	scripts, err := locateScripts(src)
	if err != nil {
		return nil, nil, err
	}

	var (
		out      bytes.Buffer
		removals []Removal
		last     int
	)
	for i, s := range scripts {
		if !s.prunable || s.start == s.end {
			continue
		}
		body, found, err := e.pruneScript(ctx, syntax.JavaScript, src[s.start:s.end], pred)
		if err != nil {
			return nil, nil, fmt.Errorf("inline script %d at %d:%d: %w", i, s.row, s.col, err)
		}
		if len(found) == 0 {
			// Left in place; copied from src with the surrounding markup.
			continue
		}
		for _, r := range found {
			removals = append(removals, r.shift(s.row, s.col))
		}
		out.Write(src[last:s.start])
		out.Write(body)
		last = s.end
	}
	out.Write(src[last:])
	return out.Bytes(), removals, nil
}

// shift moves positions relative to an embedded body into document
// positions.
func (r Removal) shift(row, col int) Removal {
	if r.Start.Row == 0 {
		r.Start.Column += col
	}
	if r.End.Row == 0 {
		r.End.Column += col
	}
	r.Start.Row += row
	r.End.Row += row
	return r
}

// locateScripts pairs every <script> element goquery sees with the byte
// range of its body in src. goquery decides which scripts are prunable; the
// tokenizer supplies the offsets, since element text is newline-normalized
// and cannot be searched for in the raw bytes.
func locateScripts(src []byte) ([]inlineScript, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("prune: parse html: %w", err)
	}
	bodies := scriptBodies(src)
	sel := doc.Find("script")
	if sel.Length() != len(bodies) {
		return nil, fmt.Errorf("prune: locate inline scripts: %d script elements but %d script tags", sel.Length(), len(bodies))
	}

	scripts := make([]inlineScript, 0, len(bodies))
	sel.Each(func(i int, s *goquery.Selection) {
		_, hasSrc := s.Attr("src")
		typ, _ := s.Attr("type")
		typ = strings.ToLower(strings.TrimSpace(typ))

		b := bodies[i]
		row, col := position(src, b.start)
		scripts = append(scripts, inlineScript{
			start:    b.start,
			end:      b.end,
			row:      row,
			col:      col,
			prunable: !hasSrc && scriptTypes[typ],
		})
	})
	return scripts, nil
}

type byteRange struct {
	start, end int
}

// scriptBodies returns the raw byte range of each <script> body in src, in
// document order. Token raw lengths are summed to track the offset.
func scriptBodies(src []byte) []byteRange {
	z := html.NewTokenizer(bytes.NewReader(src))
	var (
		bodies   []byteRange
		offset   int
		inScript bool
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return bodies
		}
		n := len(z.Raw())
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
			if inScript {
				bodies = append(bodies, byteRange{offset + n, offset + n})
			}
		case html.TextToken:
			if inScript {
				bodies[len(bodies)-1].end = offset + n
			}
			inScript = false
		default:
			inScript = false
		}
		offset += n
	}
}

// position converts a byte offset into a 0-based row and byte column.
func position(src []byte, offset int) (int, int) {
	row := bytes.Count(src[:offset], []byte("\n"))
	col := offset - (bytes.LastIndexByte(src[:offset], '\n') + 1)
	return row, col
}
