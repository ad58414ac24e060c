package models

// Drawing owns the points and shapes produced by one parse.
type Drawing struct {
	Points PointRegistry
	Shapes []*Shape
}

// NewDrawing creates an empty Drawing.
func NewDrawing() *Drawing {
	return &Drawing{Shapes: make([]*Shape, 0)}
}

// AddShape appends a shape in parse order.
func (d *Drawing) AddShape(s *Shape) {
	d.Shapes = append(d.Shapes, s)
}
