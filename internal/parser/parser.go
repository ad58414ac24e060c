package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/coords-visualizer/backend/internal/models"
)

// ProgressCallback is called periodically during parsing to report progress.
type ProgressCallback func(linesProcessed int, bytesProcessed int64, totalBytes int64)

// Parser defines the interface for coordinate dump parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// CanParse returns true if this parser can handle the given file.
	CanParse(filePath string) (bool, error)
	// Parse parses the entire file and returns the drawing plus non-fatal warnings.
	Parse(filePath string) (*models.Drawing, []*models.ParseError, error)
	// ParseWithProgress parses with progress callbacks for large files.
	ParseWithProgress(filePath string, onProgress ProgressCallback) (*models.Drawing, []*models.ParseError, error)
	// ParseReader parses an in-memory source such as a request body.
	ParseReader(r io.Reader) (*models.Drawing, []*models.ParseError, error)
}

// Options tune how shape lines are resolved.
type Options struct {
	// Strict turns an unknown point reference into a fatal error instead of a warning.
	Strict bool
	// RawTokens splits shape lines without trimming, so a trailing newline stays
	// attached to the last token and usually fails to resolve.
	RawTokens bool
}

var (
	// ErrMalformedPoint is returned for a line containing "(" that is not a point definition.
	ErrMalformedPoint = errors.New("malformed point definition")
	// ErrUnknownPoint is returned in strict mode for a shape token naming no declared point.
	ErrUnknownPoint = errors.New("unknown point reference")
)

// LineError ties a parse failure to its source line.
type LineError struct {
	Line    int
	Content string
	Err     error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Content)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// LineKind is the classification of a single input line.
type LineKind int

const (
	LineIgnored LineKind = iota
	LinePoint
	LineShape
)

// PointRegex matches "<name>(<x>, <y>, <z>)" anywhere in a line.
var PointRegex = regexp.MustCompile(`([\p{L}\p{N}_])\((\d+), (\d+), (\d+)\)`)

// ClassifyLine decides what a line defines. A "(" always means a point,
// even when the line also contains "-".
func ClassifyLine(line string) LineKind {
	if strings.IndexByte(line, '(') >= 0 {
		return LinePoint
	}
	if strings.IndexByte(line, '-') >= 0 {
		return LineShape
	}
	return LineIgnored
}

// ParsePointLine extracts a point from a point definition line.
func ParsePointLine(line string) (*models.Point, error) {
	m := PointRegex.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("%w: expected <name>(<x>, <y>, <z>)", ErrMalformedPoint)
	}

	var coords [3]float64
	for i := range coords {
		v, err := strconv.ParseFloat(m[i+2], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: coordinate %s: %v", ErrMalformedPoint, m[i+2], err)
		}
		coords[i] = v
	}

	return models.NewPoint(m[1], coords[0], coords[1], coords[2]), nil
}

// SplitShapeLine splits a shape definition line into point name tokens.
// Unless raw is set, each token is trimmed of surrounding whitespace.
func SplitShapeLine(line string, raw bool) []string {
	tokens := strings.Split(line, "-")
	if raw {
		return tokens
	}
	for i, tok := range tokens {
		tokens[i] = strings.TrimSpace(tok)
	}
	return tokens
}

// builder accumulates a drawing from classified lines.
type builder struct {
	opts     Options
	drawing  *models.Drawing
	warnings []*models.ParseError
}

func newBuilder(opts Options) *builder {
	return &builder{
		opts:     opts,
		drawing:  models.NewDrawing(),
		warnings: make([]*models.ParseError, 0),
	}
}

func (b *builder) addPoint(lineNum int, line string) error {
	p, err := ParsePointLine(line)
	if err != nil {
		return &LineError{Line: lineNum, Content: strings.TrimRight(line, "\r\n"), Err: err}
	}
	b.drawing.Points.Add(p)
	return nil
}

func (b *builder) addShape(lineNum int, line string) error {
	tokens := SplitShapeLine(line, b.opts.RawTokens)
	shape := &models.Shape{
		Points:    make([]*models.Point, 0, len(tokens)),
		Line:      lineNum,
		Requested: len(tokens),
	}

	for _, tok := range tokens {
		p, ok := b.drawing.Points.Lookup(tok)
		if !ok {
			if b.opts.Strict {
				return &LineError{
					Line:    lineNum,
					Content: strings.TrimRight(line, "\r\n"),
					Err:     fmt.Errorf("%w: %q", ErrUnknownPoint, tok),
				}
			}
			b.warnings = append(b.warnings, &models.ParseError{
				Line:    lineNum,
				Content: strings.TrimRight(line, "\r\n"),
				Reason:  fmt.Sprintf("unknown point %q dropped", tok),
			})
			continue
		}
		shape.Points = append(shape.Points, p)
	}

	b.drawing.AddShape(shape)
	return nil
}

// progressEvery is the line interval between progress callbacks.
const progressEvery = 10000

// forEachLine calls fn for every line of r with its terminator preserved.
func forEachLine(r io.Reader, totalBytes int64, onProgress ProgressCallback, fn func(lineNum int, line string) error) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	lineNum := 0
	var bytesRead int64

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			lineNum++
			bytesRead += int64(len(line))
			if fnErr := fn(lineNum, line); fnErr != nil {
				return fnErr
			}
			if onProgress != nil && lineNum%progressEvery == 0 {
				onProgress(lineNum, bytesRead, totalBytes)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}

	if onProgress != nil {
		onProgress(lineNum, bytesRead, totalBytes)
	}
	return nil
}
