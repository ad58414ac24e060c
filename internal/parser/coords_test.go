package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/coords-visualizer/backend/internal/models"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line string
		want LineKind
	}{
		{"A(0, 0, 0)\n", LinePoint},
		{"A-B\n", LineShape},
		{"A(1, 2, 3) -- with a dash", LinePoint},
		{"\n", LineIgnored},
		{"# comment", LineIgnored},
		{"", LineIgnored},
	}
	for _, tt := range tests {
		if got := ClassifyLine(tt.line); got != tt.want {
			t.Errorf("ClassifyLine(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParsePointLine(t *testing.T) {
	p, err := ParsePointLine("B(1, 20, 300)\n")
	if err != nil {
		t.Fatalf("Failed to parse point: %v", err)
	}
	if p.Name != "B" || p.X != 1 || p.Y != 20 || p.Z != 300 {
		t.Errorf("Unexpected point: %+v", p)
	}

	// The pattern may appear anywhere on the line
	p, err = ParsePointLine("  C(7, 8, 9) trailing notes")
	if err != nil {
		t.Fatalf("Failed to parse embedded point: %v", err)
	}
	if p.Name != "C" {
		t.Errorf("Expected name C, got %s", p.Name)
	}
}

func TestParsePointLineMalformed(t *testing.T) {
	bad := []string{
		"A(0,0,0)",
		"A(1.5, 0, 0)",
		"A(-1, 0, 0)",
		"A(1, 2)",
		"A(1, 2, 3",
		"(1, 2, 3)",
		"A(1, 2, " + strings.Repeat("9", 400) + ")",
		"A(\u0661, \u0662, \u0663)", // Arabic-Indic digits: \d is ASCII only
		"A(1, 2, \uff13)",           // fullwidth 3
	}
	for _, line := range bad {
		_, err := ParsePointLine(line)
		if !errors.Is(err, ErrMalformedPoint) {
			t.Errorf("ParsePointLine(%q): expected ErrMalformedPoint, got %v", line, err)
		}
	}
}

func TestSplitShapeLine(t *testing.T) {
	got := SplitShapeLine("A-B-C\n", false)
	want := []string{"A", "B", "C"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Expected %v, got %v", want, got)
	}

	raw := SplitShapeLine("A-B-C\n", true)
	if raw[2] != "C\n" {
		t.Errorf("Expected raw last token %q, got %q", "C\n", raw[2])
	}
}

func TestCoordsParserExample(t *testing.T) {
	input := "A(1, 2, 3)\nB(4, 5, 6)\nC(7, 8, 9)\nA-B-C\n"
	d, warnings, err := NewCoordsParser(Options{}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
	if d.Points.Len() != 3 {
		t.Fatalf("Expected 3 points, got %d", d.Points.Len())
	}
	if len(d.Shapes) != 1 {
		t.Fatalf("Expected 1 shape, got %d", len(d.Shapes))
	}

	s := d.Shapes[0]
	if s.ShapeType() != models.ShapeTypeTriangle {
		t.Errorf("Expected triangle, got %v", s.ShapeType())
	}
	a, _ := d.Points.Lookup("A")
	if s.Points[0] != a {
		t.Errorf("Expected shape to reference the registered point A")
	}
	if s.Line != 4 {
		t.Errorf("Expected shape on line 4, got %d", s.Line)
	}
}

func TestCoordsParserIgnoresOtherLines(t *testing.T) {
	input := "header\n\nA(0, 0, 0)\nplain text\nB(1, 0, 0)\nA-B\n"
	d, _, err := NewCoordsParser(Options{}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if d.Points.Len() != 2 || len(d.Shapes) != 1 {
		t.Errorf("Expected 2 points and 1 shape, got %d and %d", d.Points.Len(), len(d.Shapes))
	}
}

func TestCoordsParserMalformedPointIsFatal(t *testing.T) {
	input := "A(0, 0, 0)\nB(1.5, 0, 0)\nA-B\n"
	d, _, err := NewCoordsParser(Options{}).ParseReader(strings.NewReader(input))
	if err == nil {
		t.Fatal("Expected an error for a malformed point line")
	}
	if d != nil {
		t.Error("Expected no drawing on failure")
	}

	var lineErr *LineError
	if !errors.As(err, &lineErr) {
		t.Fatalf("Expected *LineError, got %T", err)
	}
	if lineErr.Line != 2 {
		t.Errorf("Expected failure on line 2, got %d", lineErr.Line)
	}
	if !errors.Is(err, ErrMalformedPoint) {
		t.Errorf("Expected ErrMalformedPoint, got %v", err)
	}
}

func TestCoordsParserUnknownReference(t *testing.T) {
	input := "A(0, 0, 0)\nB(1, 0, 0)\nA-X-B\n"
	d, warnings, err := NewCoordsParser(Options{}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	s := d.Shapes[0]
	if len(s.Points) >= s.Requested {
		t.Errorf("Expected fewer resolved points than tokens, got %d of %d", len(s.Points), s.Requested)
	}
	if s.ShapeType() != models.ShapeTypeLine {
		t.Errorf("Expected the dropped reference to demote the shape to a line, got %v", s.ShapeType())
	}
	if len(warnings) != 1 || warnings[0].Line != 3 {
		t.Fatalf("Expected one warning on line 3, got %+v", warnings)
	}
}

func TestCoordsParserStrict(t *testing.T) {
	input := "A(0, 0, 0)\nA-X\n"
	_, _, err := NewCoordsParser(Options{Strict: true}).ParseReader(strings.NewReader(input))
	if !errors.Is(err, ErrUnknownPoint) {
		t.Fatalf("Expected ErrUnknownPoint, got %v", err)
	}
}

func TestCoordsParserRawTokens(t *testing.T) {
	input := "A(0, 0, 0)\nB(1, 0, 0)\nA-B\n"

	trimmed, _, err := NewCoordsParser(Options{}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := len(trimmed.Shapes[0].Points); got != 2 {
		t.Errorf("Expected 2 resolved points with trimming, got %d", got)
	}

	raw, warnings, err := NewCoordsParser(Options{RawTokens: true}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := len(raw.Shapes[0].Points); got != 1 {
		t.Errorf("Expected the newline-terminated token to miss, got %d resolved", got)
	}
	if len(warnings) != 1 {
		t.Errorf("Expected 1 warning, got %d", len(warnings))
	}

	// Without a final newline the last token resolves even in raw mode
	raw, _, _ = NewCoordsParser(Options{RawTokens: true}).ParseReader(strings.NewReader(strings.TrimSuffix(input, "\n")))
	if got := len(raw.Shapes[0].Points); got != 2 {
		t.Errorf("Expected 2 resolved points, got %d", got)
	}
}

func TestCoordsParserForwardReference(t *testing.T) {
	input := "A(0, 0, 0)\nA-B\nB(1, 0, 0)\n"

	single, _, err := NewCoordsParser(Options{}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := len(single.Shapes[0].Points); got != 1 {
		t.Errorf("Expected the forward reference to miss in a single pass, got %d", got)
	}

	two, warnings, err := NewTwoPassParser(Options{}).ParseReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if got := len(two.Shapes[0].Points); got != 2 {
		t.Errorf("Expected the two-pass parser to resolve both points, got %d", got)
	}
	if len(warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", warnings)
	}
}

func TestCoordsParserShapeOrder(t *testing.T) {
	input := "A(0, 0, 0)\nB(1, 0, 0)\nC(0, 1, 0)\nD(1, 1, 0)\nA-B-C-D\nA-B\nA-B-C\n"
	for _, p := range []Parser{NewCoordsParser(Options{}), NewTwoPassParser(Options{})} {
		d, _, err := p.ParseReader(strings.NewReader(input))
		if err != nil {
			t.Fatalf("%s: failed to parse: %v", p.Name(), err)
		}
		var got []models.ShapeType
		for _, s := range d.Shapes {
			got = append(got, s.ShapeType())
		}
		want := []models.ShapeType{models.ShapeTypeRectangle, models.ShapeTypeLine, models.ShapeTypeTriangle}
		if len(got) != len(want) {
			t.Fatalf("%s: expected %v, got %v", p.Name(), want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: shape %d: expected %v, got %v", p.Name(), i, want[i], got[i])
			}
		}
	}
}

func TestCoordsParserWithProgress(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "coords.txt")
	content := "A(0, 0, 0)\nB(1, 0, 0)\nA-B\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var lastLines int
	var lastBytes, lastTotal int64
	d, _, err := NewCoordsParser(Options{}).ParseWithProgress(path, func(lines int, read, total int64) {
		lastLines, lastBytes, lastTotal = lines, read, total
	})
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	if len(d.Shapes) != 1 {
		t.Errorf("Expected 1 shape, got %d", len(d.Shapes))
	}
	if lastLines != 3 || lastBytes != int64(len(content)) || lastTotal != int64(len(content)) {
		t.Errorf("Unexpected final progress: lines=%d bytes=%d total=%d", lastLines, lastBytes, lastTotal)
	}
}
