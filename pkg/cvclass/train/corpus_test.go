package train

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

func TestReadCSV(t *testing.T) {
	in := "ID,Resume_str,Category\n" +
		"1,\"Python developer, REST APIs\",Software Engineer\n" +
		"2,,Nurse\n" +
		"3,Ledger and audit,\n" +
		"4,\"Patient care\nwith triage\",Nurse\n"

	c, err := ReadCSV(strings.NewReader(in), DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	want := []Example{
		{ID: "1", Line: 2, Text: "Python developer, REST APIs", Label: "Software Engineer"},
		{ID: "4", Line: 5, Text: "Patient care\nwith triage", Label: "Nurse"},
	}
	if !reflect.DeepEqual(c.Examples, want) {
		t.Errorf("examples:\n got %+v\nwant %+v", c.Examples, want)
	}
	wantIssues := []RowIssue{{Line: 3, Reason: IssueMissingText}, {Line: 4, Reason: IssueMissingLabel}}
	if !reflect.DeepEqual(c.Issues, wantIssues) {
		t.Errorf("issues: got %+v want %+v", c.Issues, wantIssues)
	}
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("text,label\na,b\n"), DefaultColumns())
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReadJSONL(t *testing.T) {
	in := `{"id":"a","text":"python developer","label":"Software Engineer"}
not json

{"id":"b","text":"","label":"Nurse"}
{"text":"audit","label":"Accountant"}
`
	c, err := ReadJSONL(strings.NewReader(in), Columns{Text: "text", Label: "label"})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Examples) != 2 {
		t.Fatalf("expected 2 examples, got %+v", c.Examples)
	}
	if c.Examples[1].ID != "row-5" || c.Examples[1].Label != "Accountant" {
		t.Errorf("unexpected second example %+v", c.Examples[1])
	}
	wantIssues := []RowIssue{{Line: 2, Reason: IssueMalformed}, {Line: 4, Reason: IssueMissingText}}
	if !reflect.DeepEqual(c.Issues, wantIssues) {
		t.Errorf("issues: got %+v want %+v", c.Issues, wantIssues)
	}
}

func TestReadFileByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonl := filepath.Join(dir, "corpus.jsonl")
	if err := os.WriteFile(jsonl, []byte(`{"Resume_str":"care","Category":"Nurse"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := ReadFile(jsonl, DefaultColumns())
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Examples) != 1 || c.Examples[0].Label != "Nurse" {
		t.Fatalf("unexpected corpus %+v", c)
	}

	if _, err := ReadFile(filepath.Join(dir, "missing.csv"), DefaultColumns()); err == nil {
		t.Fatal("expected error for missing file")
	}
}
