// Package export turns a parsed drawing into the document the shape editor loads.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coords-visualizer/backend/internal/models"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrDegenerateShape is returned for a shape with fewer than two resolved points.
var ErrDegenerateShape = errors.New("shape has fewer than 2 resolved points")

// DegeneratePolicy decides what happens to shapes that cannot be classified.
type DegeneratePolicy int

const (
	// DegenerateFail aborts the export.
	DegenerateFail DegeneratePolicy = iota
	// DegenerateDrop leaves the shape out of the export.
	DegenerateDrop
)

// Exporter builds export documents with a fixed style and degenerate-shape policy.
type Exporter struct {
	Properties models.ShapeProperties
	Degenerate DegeneratePolicy
}

// New creates an Exporter using the default style and failing on degenerate shapes.
func New() *Exporter {
	return &Exporter{
		Properties: models.DefaultShapeProperties,
		Degenerate: DegenerateFail,
	}
}

// Build exports every shape in parse order.
func (e *Exporter) Build(d *models.Drawing) ([]models.ShapeExport, error) {
	out := make([]models.ShapeExport, 0, len(d.Shapes))
	for _, s := range d.Shapes {
		if s.ShapeType() == models.ShapeTypeUnknown {
			if e.Degenerate == DegenerateDrop {
				continue
			}
			return nil, fmt.Errorf("line %d: %w (got %d of %d)", s.Line, ErrDegenerateShape, len(s.Points), s.Requested)
		}
		out = append(out, s.Export(e.Properties))
	}
	return out, nil
}

// JSON encodes the export as compact JSON without a trailing newline.
func (e *Exporter) JSON(d *models.Drawing) ([]byte, error) {
	shapes, err := e.Build(d)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(shapes); err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Msgpack encodes the export with the same field names as the JSON form.
func (e *Exporter) Msgpack(d *models.Drawing) ([]byte, error) {
	shapes, err := e.Build(d)
	if err != nil {
		return nil, err
	}

	data, err := msgpack.Marshal(shapes)
	if err != nil {
		return nil, fmt.Errorf("encoding msgpack: %w", err)
	}
	return data, nil
}

// Summary describes a drawing without exporting it.
type Summary struct {
	PointCount   int            `json:"pointCount"`
	ShapeCount   int            `json:"shapeCount"`
	ShapeTypes   map[string]int `json:"shapeTypes"`
	DroppedRefs  int            `json:"droppedRefs"`
	DegenerateAt []int          `json:"degenerateAt,omitempty"` // source lines
}

// Summarize counts points, shapes by type and unresolved references.
func Summarize(d *models.Drawing) Summary {
	s := Summary{
		PointCount: d.Points.Len(),
		ShapeCount: len(d.Shapes),
		ShapeTypes: make(map[string]int),
	}
	for _, shape := range d.Shapes {
		t := shape.ShapeType()
		s.ShapeTypes[t.String()]++
		s.DroppedRefs += shape.Dropped()
		if t == models.ShapeTypeUnknown {
			s.DegenerateAt = append(s.DegenerateAt, shape.Line)
		}
	}
	return s
}
