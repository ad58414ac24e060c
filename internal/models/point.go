// Package models contains domain types for the coords dump converter.
package models

// Point is a named 3D coordinate declared by a point definition line.
type Point struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// PointExport is the consumer-facing form of a Point.
type PointExport struct {
	PurePoints [3]float64 `json:"purePoints" msgpack:"purePoints"`
}

// NewPoint creates a Point.
func NewPoint(name string, x, y, z float64) *Point {
	return &Point{Name: name, X: x, Y: y, Z: z}
}

// Export converts the point to the consumer's coordinate system (y axis points down).
func (p *Point) Export() PointExport {
	y := -p.Y
	if y == 0 {
		y = 0 // -0 would encode as "-0"
	}
	return PointExport{PurePoints: [3]float64{p.X, y, p.Z}}
}

// PointRegistry is an append-only, ordered set of points.
// Duplicate names are kept; Lookup resolves to the first one registered.
type PointRegistry struct {
	points []*Point
	index  map[string]int
}

// Add appends a point to the registry.
func (r *PointRegistry) Add(p *Point) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if _, ok := r.index[p.Name]; !ok {
		r.index[p.Name] = len(r.points)
	}
	r.points = append(r.points, p)
}

// Lookup returns the first registered point with the given name.
func (r *PointRegistry) Lookup(name string) (*Point, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.points[i], true
}

// Len returns the number of registered points, duplicates included.
func (r *PointRegistry) Len() int {
	return len(r.points)
}

// All returns the points in insertion order.
func (r *PointRegistry) All() []*Point {
	return r.points
}
