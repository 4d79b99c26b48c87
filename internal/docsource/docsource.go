// Package docsource turns résumé files into plain text for the CLI. It
// reads text, Markdown and HTML; binary formats such as PDF are rejected.
package docsource

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// MaxSize bounds the bytes read from one document.
const MaxSize = 8 << 20

// Format is a supported input format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	HTML     Format = "html"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".text", "":
		return Text, nil
	case ".md", ".markdown":
		return Markdown, nil
	case ".html", ".htm", ".xhtml":
		return HTML, nil
	default:
		return "", fmt.Errorf("unsupported document type %q: %w", filepath.Ext(path), internalerr.ErrInvalidInput)
	}
}

// ReadFile reads path and returns its text.
func ReadFile(path string) (string, error) {
	format, err := FormatOf(path)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Read(f, format)
}

// Read returns the text of a document in the given format.
func Read(r io.Reader, format Format) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxSize {
		return "", fmt.Errorf("document larger than %d bytes: %w", MaxSize, internalerr.ErrInvalidInput)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("document is not UTF-8 text: %w", internalerr.ErrInvalidInput)
	}

	switch format {
	case Text:
		return string(data), nil
	case Markdown:
		return stripMarkdown(data)
	case HTML:
		return stripHTML(data)
	default:
		return "", fmt.Errorf("format %q: %w", format, internalerr.ErrInvalidInput)
	}
}

// stripHTML keeps visible text, breaking lines at block elements.
func stripHTML(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			buf.WriteByte('\n')
		}
	}
	walk(doc)
	return tidy(buf.String()), nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Table,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Section, atom.Article, atom.Header, atom.Footer, atom.Blockquote, atom.Pre:
		return true
	}
	return false
}

var markdown = goldmark.New()

// stripMarkdown walks the CommonMark tree and keeps the text, including
// link labels, image alt text and code. Raw HTML blocks go through
// stripHTML.
func stripMarkdown(src []byte) (string, error) {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var buf strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.Text:
			if entering {
				buf.Write(n.Segment.Value(src))
				if n.SoftLineBreak() || n.HardLineBreak() {
					buf.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				buf.Write(n.Value)
			}
		case *ast.AutoLink:
			if entering {
				buf.Write(n.Label(src))
			}
		case *ast.Emphasis:
			keepIntraword(&buf, n, src, entering)
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock:
			if entering {
				raw := linesOf(n.Lines(), src)
				if n.HasClosure() {
					raw = append(raw, n.ClosureLine.Value(src)...)
				}
				t, err := stripHTML(raw)
				if err != nil {
					return ast.WalkStop, err
				}
				buf.WriteString(t)
				buf.WriteByte('\n')
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if entering {
				buf.Write(linesOf(n.Lines(), src))
			}
		case *ast.FencedCodeBlock:
			if entering {
				buf.Write(linesOf(n.Lines(), src))
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			buf.WriteByte('\n')
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return tidy(buf.String()), nil
}

// keepIntraword writes back the delimiters of an emphasis span that sits
// inside a word, such as 2*3*4, so the surrounding tokens stay apart.
func keepIntraword(buf *strings.Builder, e *ast.Emphasis, src []byte, entering bool) {
	start, stop, ok := textBounds(e)
	if !ok {
		return
	}
	if entering {
		if open := start - e.Level; open > 0 && isWordByte(src[open-1]) {
			buf.Write(src[open:start])
		}
		return
	}
	if end := stop + e.Level; end < len(src) && isWordByte(src[end]) {
		buf.Write(src[stop:end])
	}
}

// textBounds returns the source range covered by the text under n.
func textBounds(n ast.Node) (start, stop int, ok bool) {
	start = -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, isText := c.(*ast.Text); isText && entering {
			if start < 0 {
				start = t.Segment.Start
			}
			stop = t.Segment.Stop
		}
		return ast.WalkContinue, nil
	})
	return start, stop, start >= 0
}

func isWordByte(b byte) bool {
	return b >= utf8.RuneSelf || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func linesOf(lines *text.Segments, src []byte) []byte {
	var out []byte
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, seg.Value(src)...)
	}
	return out
}

// tidy trims lines and drops blank ones.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
