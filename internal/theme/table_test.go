package theme

import (
	"strings"
	"testing"
)

func TestTableContainsEveryCell(t *testing.T) {
	headers := []string{"Version", "Release Date"}
	rows := [][]string{
		{"8.3.0", "2023-11-23"},
		{"8.2.13", "2023-11-23"},
		{"7.4.33"},
	}

	out := Table(headers, rows)
	for _, want := range []string{"Version", "Release Date", "8.3.0", "8.2.13", "7.4.33", "2023-11-23"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table is missing %q:\n%s", want, out)
		}
	}

	// border, header, rule, three rows, border
	if got := len(strings.Split(out, "\n")); got != 7 {
		t.Fatalf("expected 7 lines, got %d:\n%s", got, out)
	}
}
