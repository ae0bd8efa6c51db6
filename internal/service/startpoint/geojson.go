package startpoint

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/afero"
)

// GeoJSONSource reads start points from a FeatureCollection file. Points and
// MultiPoints are used as is; any other geometry contributes its bound center.
type GeoJSONSource struct {
	fs   afero.Fs
	path string
}

func NewGeoJSONSource(fs afero.Fs, path string) *GeoJSONSource {
	return &GeoJSONSource{fs: fs, path: path}
}

func (s *GeoJSONSource) QueryAll(ctx context.Context) ([]orb.Point, error) {
	candidates, err := LoadGeoJSON(s.fs, s.path)
	if err != nil {
		return nil, err
	}
	return points(candidates), nil
}

// LoadGeoJSON parses the file and names each candidate after its "name" property
func LoadGeoJSON(fs afero.Fs, path string) ([]Candidate, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var result []Candidate
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name := f.Properties.MustString("name", "")

		switch g := f.Geometry.(type) {
		case orb.Point:
			result = append(result, Candidate{Name: name, Point: g})
		case orb.MultiPoint:
			for _, p := range g {
				result = append(result, Candidate{Name: name, Point: p})
			}
		default:
			result = append(result, Candidate{Name: name, Point: g.Bound().Center()})
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoStartPoints)
	}
	return result, nil
}
