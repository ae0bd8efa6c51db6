package startpoint

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/paulmach/orb"
	"github.com/qedus/osmpbf"
	"github.com/spf13/afero"
)

// TagFilter matches OSM tags given as "key" or "key=value"
type TagFilter struct {
	Key   string
	Value string
}

func ParseTagFilter(s string) TagFilter {
	key, value, _ := strings.Cut(strings.TrimSpace(s), "=")
	return TagFilter{Key: strings.TrimSpace(key), Value: strings.TrimSpace(value)}
}

func (f TagFilter) Match(tags map[string]string) bool {
	v, ok := tags[f.Key]
	if !ok {
		return false
	}
	return f.Value == "" || v == f.Value
}

// OSMSource reads tagged nodes from an OSM PBF extract
type OSMSource struct {
	fs     afero.Fs
	path   string
	filter TagFilter
	extent orb.Bound
}

// NewOSMSource keeps nodes matching filter. A zero extent disables the
// bounding check.
func NewOSMSource(fs afero.Fs, path string, filter TagFilter, extent orb.Bound) *OSMSource {
	return &OSMSource{fs: fs, path: path, filter: filter, extent: extent}
}

func (s *OSMSource) QueryAll(ctx context.Context) ([]orb.Point, error) {
	candidates, err := LoadOSM(ctx, s.fs, s.path, s.filter, s.extent)
	if err != nil {
		return nil, err
	}
	return points(candidates), nil
}

// LoadOSM scans every node in the extract and returns those that match
func LoadOSM(ctx context.Context, fs afero.Fs, path string, filter TagFilter, extent orb.Bound) ([]Candidate, error) {
	if filter.Key == "" {
		return nil, errors.New("OSM tag filter is empty")
	}

	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	decoder := osmpbf.NewDecoder(f)
	decoder.SetBufferSize(osmpbf.MaxBlobSize)
	if err := decoder.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, fmt.Errorf("start OSM decoder: %w", err)
	}

	checkExtent := extent != orb.Bound{}
	var result []Candidate
	for {
		if err := ctx.Err(); err != nil {
			drain(decoder)
			return nil, err
		}

		object, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			drain(decoder)
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		node, ok := object.(*osmpbf.Node)
		if !ok || !filter.Match(node.Tags) {
			continue
		}
		p := orb.Point{node.Lon, node.Lat}
		if checkExtent && !extent.Contains(p) {
			continue
		}
		result = append(result, Candidate{Name: node.Tags["name"], Point: p})
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoStartPoints)
	}
	return result, nil
}

// drain reads the decoder to its end. A started decoder has no Close and its
// workers only exit once the whole file has been read.
func drain(decoder *osmpbf.Decoder) {
	for {
		if _, err := decoder.Decode(); err != nil {
			return
		}
	}
}
