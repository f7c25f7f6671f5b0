package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"

	"github.com/fieldepi/geostat-cli/internal/dataset"
)

// square returns a closed ring from (x0,y0) to (x1,y1).
func square(x0, y0, x1, y1 float64) []float64 {
	return []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}
}

func TestContains(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, square(38, 8, 40, 10), []int{10})
	polys := []*geom.Polygon{poly}

	assert.True(t, Contains(polys, 39, 9))
	assert.False(t, Contains(polys, 41, 9))
	assert.False(t, Contains(polys, 39, 11))
}

func TestContains_Hole(t *testing.T) {
	outer := square(0, 0, 10, 10)
	hole := square(4, 4, 6, 6)
	poly := geom.NewPolygonFlat(geom.XY, append(outer, hole...), []int{10, 20})
	polys := []*geom.Polygon{poly}

	assert.True(t, Contains(polys, 2, 2))
	assert.False(t, Contains(polys, 5, 5), "point in hole is outside")
	assert.False(t, Contains(polys, 11, 5))
}

func TestCrop(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, square(38, 8, 40, 10), []int{10})

	ds := &dataset.Dataset{
		Label: "survey",
		Records: []dataset.Record{
			{Lat: 9, Lon: 39},  // inside
			{Lat: 9, Lon: 41},  // east of boundary
			{Lat: 11, Lon: 39}, // north of boundary
			{Lat: 8.5, Lon: 38.5},
		},
	}

	out := Crop(ds, []*geom.Polygon{poly})
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, "survey", out.Label)
	// Original untouched.
	assert.Equal(t, 4, ds.Len())
}
