package models

import (
	"fmt"
	"regexp"
	"strconv"
)

var hexColorRegex = regexp.MustCompile(`^#?([a-fA-F\d]{2})([a-fA-F\d]{2})([a-fA-F\d]{2})$`)

// ShapeProperties is the style record attached to every exported shape.
// Field order and names follow the consumer's ShapeProperties class.
type ShapeProperties struct {
	ShapeColor   string  `json:"shapeColor" msgpack:"shapeColor" yaml:"shape_color"`
	Alpha        string  `json:"alpha" msgpack:"alpha" yaml:"alpha"`
	LineWidth    float64 `json:"lineWidth" msgpack:"lineWidth" yaml:"line_width"`
	HoverColor   string  `json:"hoverColor" msgpack:"hoverColor" yaml:"hover_color"`
	FillColorHex string  `json:"_fillColorHex" msgpack:"_fillColorHex" yaml:"fill_color"`
}

// DefaultShapeProperties is the style emitted when no override is configured.
var DefaultShapeProperties = ShapeProperties{
	ShapeColor:   "#0000ff",
	Alpha:        "1",
	LineWidth:    1,
	HoverColor:   "red",
	FillColorHex: "#00ffff",
}

// Merge returns p with every non-zero field of override applied.
func (p ShapeProperties) Merge(override ShapeProperties) ShapeProperties {
	if override.ShapeColor != "" {
		p.ShapeColor = override.ShapeColor
	}
	if override.Alpha != "" {
		p.Alpha = override.Alpha
	}
	if override.LineWidth != 0 {
		p.LineWidth = override.LineWidth
	}
	if override.HoverColor != "" {
		p.HoverColor = override.HoverColor
	}
	if override.FillColorHex != "" {
		p.FillColorHex = override.FillColorHex
	}
	return p
}

// Validate checks the fill colour and alpha the consumer parses.
func (p ShapeProperties) Validate() error {
	if !hexColorRegex.MatchString(p.FillColorHex) {
		return fmt.Errorf("invalid fill color %q: expected #rrggbb", p.FillColorHex)
	}
	a, err := strconv.ParseFloat(p.Alpha, 64)
	if err != nil {
		return fmt.Errorf("invalid alpha %q: %w", p.Alpha, err)
	}
	if a < 0 || a > 1 {
		return fmt.Errorf("alpha %q out of range [0, 1]", p.Alpha)
	}
	if p.LineWidth <= 0 {
		return fmt.Errorf("line width must be positive, got %v", p.LineWidth)
	}
	return nil
}

// FillColorRGBA renders the fill colour the way the consumer paints it.
// The consumer treats alpha as transparency, so the rgba alpha is 1-alpha.
func (p ShapeProperties) FillColorRGBA() (string, error) {
	m := hexColorRegex.FindStringSubmatch(p.FillColorHex)
	if m == nil {
		return "", fmt.Errorf("invalid fill color %q", p.FillColorHex)
	}
	a, err := strconv.ParseFloat(p.Alpha, 64)
	if err != nil {
		return "", fmt.Errorf("invalid alpha %q: %w", p.Alpha, err)
	}
	r, _ := strconv.ParseUint(m[1], 16, 8)
	g, _ := strconv.ParseUint(m[2], 16, 8)
	b, _ := strconv.ParseUint(m[3], 16, 8)
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(1-a, 'f', -1, 64)), nil
}

// StyleInfo contains metadata about an uploaded style file.
type StyleInfo struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	UploadedAt    string          `json:"uploadedAt,omitempty"`
	Properties    ShapeProperties `json:"properties"`
	FillColorRGBA string          `json:"fillColorRgba,omitempty"` // preview of the painted fill
}
