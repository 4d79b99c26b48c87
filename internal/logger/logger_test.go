package logger

import "testing"

func TestTruncateForLog(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  short  ", 10, "short"},
		{"résumé text", 6, "résumé..."},
		{"anything", 0, ""},
	}
	for _, tc := range cases {
		if got := TruncateForLog(tc.in, tc.limit); got != tc.want {
			t.Errorf("TruncateForLog(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestNewBuildsLogger(t *testing.T) {
	l, err := New(true, true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !l.Core().Enabled(-1) {
		t.Error("debug level should be enabled")
	}
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) should return a logger")
	}
}
