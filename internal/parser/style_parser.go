package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/coords-visualizer/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// ParseStyle parses a YAML style file. Keys left out keep their default value.
//
//	shape_color: "#0000ff"
//	alpha: "1"
//	line_width: 1
//	hover_color: red
//	fill_color: "#00ffff"
func ParseStyle(filePath string) (models.ShapeProperties, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return models.ShapeProperties{}, err
	}
	defer file.Close()

	return ParseStyleFromReader(file)
}

// ParseStyleFromReader parses a style from an io.Reader.
func ParseStyleFromReader(r io.Reader) (models.ShapeProperties, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.ShapeProperties{}, err
	}

	var override models.ShapeProperties
	if err := yaml.Unmarshal(data, &override); err != nil {
		return models.ShapeProperties{}, fmt.Errorf("decoding style: %w", err)
	}

	props := models.DefaultShapeProperties.Merge(override)
	if err := props.Validate(); err != nil {
		return models.ShapeProperties{}, err
	}
	return props, nil
}
