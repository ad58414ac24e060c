package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/coords-visualizer/backend/internal/models"
)

// CoordsParser reads point and shape definitions in a single forward pass.
// Format:
//
//	A(0, 0, 0)
//	B(1, 0, 0)
//	A-B
//
// A shape can only reference points declared on earlier lines.
type CoordsParser struct {
	opts Options
}

func NewCoordsParser(opts Options) *CoordsParser {
	return &CoordsParser{opts: opts}
}

func (p *CoordsParser) Name() string {
	return "coords"
}

func (p *CoordsParser) CanParse(filePath string) (bool, error) {
	return sniffCoords(filePath)
}

func (p *CoordsParser) Parse(filePath string) (*models.Drawing, []*models.ParseError, error) {
	return p.ParseWithProgress(filePath, nil)
}

func (p *CoordsParser) ParseWithProgress(filePath string, onProgress ProgressCallback) (*models.Drawing, []*models.ParseError, error) {
	return parseFile(filePath, onProgress, p.parse)
}

func (p *CoordsParser) ParseReader(r io.Reader) (*models.Drawing, []*models.ParseError, error) {
	return p.parse(r, 0, nil)
}

func (p *CoordsParser) parse(r io.Reader, totalBytes int64, onProgress ProgressCallback) (*models.Drawing, []*models.ParseError, error) {
	b := newBuilder(p.opts)
	err := forEachLine(r, totalBytes, onProgress, func(lineNum int, line string) error {
		switch ClassifyLine(line) {
		case LinePoint:
			return b.addPoint(lineNum, line)
		case LineShape:
			return b.addShape(lineNum, line)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return b.drawing, b.warnings, nil
}

// TwoPassParser collects every point before resolving any shape, so shapes
// may reference points declared later in the file. Shape order is unchanged.
type TwoPassParser struct {
	opts Options
}

func NewTwoPassParser(opts Options) *TwoPassParser {
	return &TwoPassParser{opts: opts}
}

func (p *TwoPassParser) Name() string {
	return "coords-two-pass"
}

func (p *TwoPassParser) CanParse(filePath string) (bool, error) {
	return sniffCoords(filePath)
}

func (p *TwoPassParser) Parse(filePath string) (*models.Drawing, []*models.ParseError, error) {
	return p.ParseWithProgress(filePath, nil)
}

func (p *TwoPassParser) ParseWithProgress(filePath string, onProgress ProgressCallback) (*models.Drawing, []*models.ParseError, error) {
	return parseFile(filePath, onProgress, p.parse)
}

func (p *TwoPassParser) ParseReader(r io.Reader) (*models.Drawing, []*models.ParseError, error) {
	return p.parse(r, 0, nil)
}

type shapeLine struct {
	num  int
	text string
}

func (p *TwoPassParser) parse(r io.Reader, totalBytes int64, onProgress ProgressCallback) (*models.Drawing, []*models.ParseError, error) {
	b := newBuilder(p.opts)
	var pending []shapeLine

	err := forEachLine(r, totalBytes, onProgress, func(lineNum int, line string) error {
		switch ClassifyLine(line) {
		case LinePoint:
			return b.addPoint(lineNum, line)
		case LineShape:
			pending = append(pending, shapeLine{num: lineNum, text: line})
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, sl := range pending {
		if err := b.addShape(sl.num, sl.text); err != nil {
			return nil, nil, err
		}
	}
	return b.drawing, b.warnings, nil
}

type parseFunc func(r io.Reader, totalBytes int64, onProgress ProgressCallback) (*models.Drawing, []*models.ParseError, error)

func parseFile(filePath string, onProgress ProgressCallback, parse parseFunc) (*models.Drawing, []*models.ParseError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	// Get file size for progress calculation
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, nil, err
	}

	return parse(file, fileInfo.Size(), onProgress)
}

// sniffCoords reports whether the first meaningful lines of a file look like a coords dump.
func sniffCoords(filePath string) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	checked := 0
	matched := 0
	for scanner.Scan() && checked < 10 {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		checked++
		switch ClassifyLine(line) {
		case LinePoint:
			if PointRegex.MatchString(line) {
				matched++
			}
		case LineShape:
			matched++
		}
	}

	return checked > 0 && float64(matched)/float64(checked) >= 0.6, nil
}
