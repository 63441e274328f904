package proximity

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadLocations reads a replacement sensitive-location set from a YAML file
// (a sequence of {name, latitude, longitude, category, weight} mappings).
func LoadLocations(path string) ([]SensitiveLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: read locations %s", path)
	}

	var locations []SensitiveLocation
	if err := yaml.Unmarshal(data, &locations); err != nil {
		return nil, eris.Wrapf(err, "proximity: parse locations %s", path)
	}
	if len(locations) == 0 {
		return nil, eris.Errorf("proximity: locations file %s is empty", path)
	}

	for i, loc := range locations {
		if loc.Weight <= 0 {
			return nil, eris.Errorf("proximity: location %d (%s) has non-positive weight", i, loc.Name)
		}
	}

	return locations, nil
}

// LoadShapefile appends sensitive locations from a point shapefile, assigning
// every point the given category and weight. The location name is taken from
// the first field named NAME (case-insensitive) when present, otherwise left
// empty. Non-point shapes are skipped with a debug log.
func LoadShapefile(path string, category Category, weight float64) ([]SensitiveLocation, error) {
	if weight <= 0 {
		return nil, eris.Errorf("proximity: shapefile weight must be positive, got %.2f", weight)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "proximity: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := fieldIndex(reader, "NAME")

	var locations []SensitiveLocation
	for reader.Next() {
		n, shape := reader.Shape()

		point, ok := shape.(*shp.Point)
		if !ok {
			zap.L().Debug("proximity: skipping non-point shape", zap.Int("record", n))
			continue
		}

		loc := SensitiveLocation{
			Latitude:  point.Y,
			Longitude: point.X,
			Category:  category,
			Weight:    weight,
		}
		if nameIdx >= 0 {
			loc.Name = strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		locations = append(locations, loc)
	}

	if len(locations) == 0 {
		return nil, eris.Errorf("proximity: shapefile %s contains no point records", path)
	}

	return locations, nil
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
