package startpoint

import (
	"context"
	"encoding/binary"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

type pbfNode struct {
	id       int64
	lon, lat float64
	tags     [][2]string
}

// pbfFileBlock frames data as an uncompressed blob of the given type
func pbfFileBlock(typ string, data []byte) []byte {
	blob := protowire.AppendTag(nil, 1, protowire.BytesType)
	blob = protowire.AppendBytes(blob, data)
	blob = protowire.AppendTag(blob, 2, protowire.VarintType)
	blob = protowire.AppendVarint(blob, uint64(len(data)))

	header := protowire.AppendTag(nil, 1, protowire.BytesType)
	header = protowire.AppendString(header, typ)
	header = protowire.AppendTag(header, 3, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(len(blob)))

	out := binary.BigEndian.AppendUint32(nil, uint32(len(header)))
	out = append(out, header...)
	return append(out, blob...)
}

func pbfHeader() []byte {
	block := protowire.AppendTag(nil, 4, protowire.BytesType)
	block = protowire.AppendString(block, "OsmSchema-V0.6")
	return pbfFileBlock("OSMHeader", block)
}

func pbfNodes(nodes ...pbfNode) []byte {
	strs := []string{""}
	index := map[string]uint64{"": 0}
	lookup := func(s string) uint64 {
		if i, ok := index[s]; ok {
			return i
		}
		index[s] = uint64(len(strs))
		strs = append(strs, s)
		return index[s]
	}

	var group []byte
	for _, n := range nodes {
		node := protowire.AppendTag(nil, 1, protowire.VarintType)
		node = protowire.AppendVarint(node, protowire.EncodeZigZag(n.id))
		if len(n.tags) > 0 {
			var keys, vals []byte
			for _, kv := range n.tags {
				keys = protowire.AppendVarint(keys, lookup(kv[0]))
				vals = protowire.AppendVarint(vals, lookup(kv[1]))
			}
			node = protowire.AppendTag(node, 2, protowire.BytesType)
			node = protowire.AppendBytes(node, keys)
			node = protowire.AppendTag(node, 3, protowire.BytesType)
			node = protowire.AppendBytes(node, vals)
		}
		// Default granularity is 100 nanodegrees
		node = protowire.AppendTag(node, 8, protowire.VarintType)
		node = protowire.AppendVarint(node, protowire.EncodeZigZag(int64(math.Round(n.lat*1e7))))
		node = protowire.AppendTag(node, 9, protowire.VarintType)
		node = protowire.AppendVarint(node, protowire.EncodeZigZag(int64(math.Round(n.lon*1e7))))

		group = protowire.AppendTag(group, 1, protowire.BytesType)
		group = protowire.AppendBytes(group, node)
	}

	var table []byte
	for _, s := range strs {
		table = protowire.AppendTag(table, 1, protowire.BytesType)
		table = protowire.AppendString(table, s)
	}

	block := protowire.AppendTag(nil, 1, protowire.BytesType)
	block = protowire.AppendBytes(block, table)
	block = protowire.AppendTag(block, 2, protowire.BytesType)
	block = protowire.AppendBytes(block, group)
	return pbfFileBlock("OSMData", block)
}

func writeExtract(t *testing.T, blocks ...[]byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	var data []byte
	for _, b := range blocks {
		data = append(data, b...)
	}
	require.NoError(t, afero.WriteFile(fs, "/extract.osm.pbf", data, 0o644))
	return fs
}

func TestLoadOSM(t *testing.T) {
	fs := writeExtract(t, pbfHeader(), pbfNodes(
		pbfNode{id: 1, lon: -117.2, lat: 34.05, tags: [][2]string{{"amenity", "post_office"}, {"name", "Main"}}},
		pbfNode{id: 2, lon: -117.25, lat: 34.02, tags: [][2]string{{"amenity", "cafe"}}},
		pbfNode{id: 3, lon: -110, lat: 30, tags: [][2]string{{"amenity", "post_office"}}},
		pbfNode{id: 4, lon: -117.15, lat: 34.08},
	))
	extent := orb.Bound{Min: orb.Point{-117.3, 34.0}, Max: orb.Point{-117.1, 34.1}}

	got, err := LoadOSM(context.Background(), fs, "/extract.osm.pbf", ParseTagFilter("amenity=post_office"), extent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Main", got[0].Name)
	assert.InDelta(t, -117.2, got[0].Point.Lon(), 1e-7)
	assert.InDelta(t, 34.05, got[0].Point.Lat(), 1e-7)

	got, err = LoadOSM(context.Background(), fs, "/extract.osm.pbf", ParseTagFilter("amenity"), orb.Bound{})
	require.NoError(t, err)
	assert.Len(t, got, 3, "zero extent keeps every tagged node")

	_, err = LoadOSM(context.Background(), fs, "/extract.osm.pbf", ParseTagFilter("shop"), orb.Bound{})
	assert.ErrorIs(t, err, ErrNoStartPoints)
}

func TestLoadOSMCancelledReleasesDecoder(t *testing.T) {
	blocks := [][]byte{pbfHeader()}
	for i := range 8 {
		blocks = append(blocks, pbfNodes(pbfNode{id: int64(i + 1), lon: -117.2, lat: 34.05, tags: [][2]string{{"amenity", "post_office"}}}))
	}
	fs := writeExtract(t, blocks...)

	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := LoadOSM(ctx, fs, "/extract.osm.pbf", ParseTagFilter("amenity"), orb.Bound{})
	assert.ErrorIs(t, err, context.Canceled)

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "decoder workers still running")
}
