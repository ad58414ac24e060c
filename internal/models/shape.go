package models

// ShapeType classifies a shape by its resolved vertex count.
// Values match the consumer's shapeTypeId.
type ShapeType int

const (
	ShapeTypeUnknown   ShapeType = 0
	ShapeTypeLine      ShapeType = 1
	ShapeTypeTriangle  ShapeType = 2
	ShapeTypeRectangle ShapeType = 3
	ShapeTypePolygon   ShapeType = 4
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeLine:
		return "line"
	case ShapeTypeTriangle:
		return "triangle"
	case ShapeTypeRectangle:
		return "rectangle"
	case ShapeTypePolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// ClassifyShape maps a resolved point count to a ShapeType.
// Fewer than two points cannot be drawn and yield ShapeTypeUnknown.
func ClassifyShape(pointCount int) ShapeType {
	switch {
	case pointCount == 2:
		return ShapeTypeLine
	case pointCount == 3:
		return ShapeTypeTriangle
	case pointCount == 4:
		return ShapeTypeRectangle
	case pointCount > 4:
		return ShapeTypePolygon
	default:
		return ShapeTypeUnknown
	}
}

// Shape is a polyline or polygon built from a shape definition line.
// Points are references into the drawing's PointRegistry, not copies.
type Shape struct {
	Points    []*Point `json:"-"`
	Line      int      `json:"line"`      // 1-based source line
	Requested int      `json:"requested"` // tokens split from the source line
}

// ShapeType returns the classification of the shape.
func (s *Shape) ShapeType() ShapeType {
	return ClassifyShape(len(s.Points))
}

// Dropped returns how many requested references did not resolve.
func (s *Shape) Dropped() int {
	if s.Requested < len(s.Points) {
		return 0
	}
	return s.Requested - len(s.Points)
}

// ShapeExport is the consumer-facing form of a Shape.
type ShapeExport struct {
	ShapeID     string          `json:"shapeId" msgpack:"shapeId"`
	Points      []PointExport   `json:"points" msgpack:"points"`
	Properties  ShapeProperties `json:"properties" msgpack:"properties"`
	ShapeTypeID ShapeType       `json:"shapeTypeId" msgpack:"shapeTypeId"`
}

// Export converts the shape using the given style properties.
// The shapeId is left empty for the consumer to assign.
func (s *Shape) Export(props ShapeProperties) ShapeExport {
	points := make([]PointExport, 0, len(s.Points))
	for _, p := range s.Points {
		points = append(points, p.Export())
	}
	return ShapeExport{
		ShapeID:     "",
		Points:      points,
		Properties:  props,
		ShapeTypeID: s.ShapeType(),
	}
}
