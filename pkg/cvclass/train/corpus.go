package train

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Example is one labeled training document.
type Example struct {
	ID    string
	Line  int // source line, for issue reports
	Text  string
	Label string
}

// RowIssue records why a corpus row was left out of training.
type RowIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Issue reasons.
const (
	IssueMissingText  = "missing text"
	IssueMissingLabel = "missing label"
	IssueUnknownLabel = "unknown label"
	IssueMalformed    = "malformed row"
)

// Columns names the text and label fields of a corpus.
type Columns struct {
	Text  string
	Label string
}

// DefaultColumns matches the public résumé datasets: Resume_str / Category.
func DefaultColumns() Columns {
	return Columns{Text: "Resume_str", Label: "Category"}
}

// Corpus is a loaded training corpus.
type Corpus struct {
	Examples []Example
	Issues   []RowIssue
}

// ReadFile loads a corpus, choosing the format from the extension:
// .jsonl and .ndjson are JSON lines, everything else is CSV.
func ReadFile(path string, cols Columns) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return ReadJSONL(f, cols)
	default:
		return ReadCSV(f, cols)
	}
}

// ReadCSV reads a corpus with a header row. Rows with an empty text or
// label are recorded as issues instead of failing the read.
func ReadCSV(r io.Reader, cols Columns) (*Corpus, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %v: %w", err, internalerr.ErrInvalidInput)
	}
	textIdx, labelIdx, idIdx := -1, -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case cols.Text:
			textIdx = i
		case cols.Label:
			labelIdx = i
		case "ID", "id":
			idIdx = i
		}
	}
	if textIdx < 0 || labelIdx < 0 {
		return nil, fmt.Errorf("csv header %v lacks %q or %q: %w", header, cols.Text, cols.Label, internalerr.ErrInvalidInput)
	}

	c := &Corpus{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				c.Issues = append(c.Issues, RowIssue{Line: perr.StartLine, Reason: IssueMalformed})
				continue
			}
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		field := func(i int) string {
			if i < 0 || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		c.add(line, field(idIdx), field(textIdx), field(labelIdx))
	}
	return c, nil
}

// ReadJSONL reads one JSON object per line. Malformed lines are recorded
// as issues and skipped.
func ReadJSONL(r io.Reader, cols Columns) (*Corpus, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	c := &Corpus{}
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			c.Issues = append(c.Issues, RowIssue{Line: line, Reason: IssueMalformed})
			continue
		}
		c.add(line, asString(obj["id"]), asString(obj[cols.Text]), asString(obj[cols.Label]))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return c, nil
}

func (c *Corpus) add(line int, id, text, label string) {
	label = strings.TrimSpace(label)
	switch {
	case strings.TrimSpace(text) == "":
		c.Issues = append(c.Issues, RowIssue{Line: line, Reason: IssueMissingText})
	case label == "":
		c.Issues = append(c.Issues, RowIssue{Line: line, Reason: IssueMissingLabel})
	default:
		if id == "" {
			id = fmt.Sprintf("row-%d", line)
		}
		c.Examples = append(c.Examples, Example{ID: id, Line: line, Text: text, Label: label})
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprint(t)
	}
}
