package tui

import (
	"strings"
	"testing"
)

func TestCalculateColumnWidths_AllFixed(t *testing.T) {
	specs := []ColumnSpec{
		{Fixed: 10, Priority: 3},
		{Fixed: 15, Priority: 2},
		{Fixed: 20, Priority: 1},
	}

	widths := CalculateColumnWidths(specs, 100, 3)

	for i, want := range []int{10, 15, 20} {
		if widths[i] != want {
			t.Errorf("widths[%d] = %d, want %d", i, widths[i], want)
		}
	}
}

func TestCalculateColumnWidths_ProportionalDistribution(t *testing.T) {
	specs := []ColumnSpec{
		{Fixed: 10, Priority: 3},
		{Weight: 1.0, MinWidth: 5, Priority: 2},
		{Weight: 2.0, MinWidth: 5, Priority: 1},
	}

	// 100 - 10 fixed - 6 separators - 2 padding = 82 to share 1:2
	widths := CalculateColumnWidths(specs, 100, 3)

	if widths[0] != 10 {
		t.Errorf("widths[0] = %d, want 10", widths[0])
	}
	if widths[1] != 27 {
		t.Errorf("widths[1] = %d, want 27", widths[1])
	}
	if widths[2] != 54 {
		t.Errorf("widths[2] = %d, want 54", widths[2])
	}
}

func TestCalculateColumnWidths_DropsLowPriority(t *testing.T) {
	specs := []ColumnSpec{
		{Fixed: 30, Priority: 3},
		{Fixed: 30, Priority: 1},
		{Fixed: 30, Priority: 2},
	}

	widths := CalculateColumnWidths(specs, 70, 3)

	if widths[1] != 0 {
		t.Errorf("widths[1] = %d, want 0 (lowest priority)", widths[1])
	}
	if widths[0] != 30 || widths[2] != 30 {
		t.Errorf("kept columns changed: %v", widths)
	}
}

func TestCalculateColumnWidths_KeepsLastColumn(t *testing.T) {
	specs := []ColumnSpec{
		{Fixed: 10, Priority: 3},
		{Fixed: 10, Priority: 2},
		{Fixed: 10, Priority: 1},
	}

	widths := CalculateColumnWidths(specs, 5, 3)

	if widths[0] != 10 {
		t.Errorf("highest priority column should survive, got %v", widths)
	}
	if widths[1] != 0 || widths[2] != 0 {
		t.Errorf("expected other columns dropped, got %v", widths)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		maxWidth int
		expected string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hell…"},
		{"hi", 0, ""},
		{"hello world", 1, "h"},
		{"Żółć i gęśl", 5, "Żółć…"},
	}

	for _, tt := range tests {
		result := Truncate(tt.input, tt.maxWidth)
		if result != tt.expected {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.input, tt.maxWidth, result, tt.expected)
		}
	}
}

func TestPadRight(t *testing.T) {
	tests := []struct {
		input    string
		width    int
		expected string
	}{
		{"hi", 5, "hi   "},
		{"hello", 5, "hello"},
		{"hello!", 5, "hello!"},
		{"łódź", 6, "łódź  "},
	}

	for _, tt := range tests {
		result := PadRight(tt.input, tt.width)
		if result != tt.expected {
			t.Errorf("PadRight(%q, %d) = %q, want %q", tt.input, tt.width, result, tt.expected)
		}
	}
}

func TestContentWidth(t *testing.T) {
	tests := []struct {
		termWidth int
		minWidth  int
		maxWidth  int
		expected  int
	}{
		{80, 40, 120, 80},
		{30, 40, 120, 40},
		{200, 40, 120, 120},
		{80, 40, 0, 80},
	}

	for _, tt := range tests {
		result := ContentWidth(tt.termWidth, tt.minWidth, tt.maxWidth)
		if result != tt.expected {
			t.Errorf("ContentWidth(%d, %d, %d) = %d, want %d",
				tt.termWidth, tt.minWidth, tt.maxWidth, result, tt.expected)
		}
	}
}

func TestContentHeight(t *testing.T) {
	tests := []struct {
		termHeight  int
		chromeLines int
		expected    int
	}{
		{24, 6, 18},
		{8, 6, 3},
		{5, 6, 3},
	}

	for _, tt := range tests {
		result := ContentHeight(tt.termHeight, tt.chromeLines)
		if result != tt.expected {
			t.Errorf("ContentHeight(%d, %d) = %d, want %d",
				tt.termHeight, tt.chromeLines, result, tt.expected)
		}
	}
}

func TestPanel_Title(t *testing.T) {
	theme := NewTheme(ThemeDark)
	out := theme.Panel("STANY", "body", 30, true)

	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "STANY") {
		t.Errorf("title missing from top border: %q", lines[0])
	}
	if !strings.Contains(lines[1], "body") {
		t.Errorf("content missing: %q", lines[1])
	}
}

func TestColumns(t *testing.T) {
	wide := Columns(NarrowWidth, "A", "B")
	if strings.Contains(wide, "\n") {
		t.Errorf("wide layout should be one line, got %q", wide)
	}

	narrow := Columns(NarrowWidth-1, "A", "B")
	if narrow != "A\nB" {
		t.Errorf("narrow layout should stack, got %q", narrow)
	}
}
