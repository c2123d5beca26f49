package main

import (
	"strings"
	"testing"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/menta2k/image-annotator/pkg/session"
)

func TestRenderModeTable(t *testing.T) {
	modes := []session.Mode{session.Vehicle, session.Viaduct}
	rows := [][]string{
		{"3", "a.png", "12 B", "-"},
		{"12", "b.png"},
	}

	out := renderModeTable([]string{indexHeader, "Image"}, modes, text.AlignRight, rows)

	for _, want := range []string{"vehicle", "viaduct", "│  3 │ a.png │", "│ 12 │ b.png │", "12 B"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in\n%s", want, out)
		}
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 6 {
		t.Errorf("Expected 6 lines (border, header, rule, 2 rows, border), got %d", len(lines))
	}
}
