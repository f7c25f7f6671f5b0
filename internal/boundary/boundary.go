// Package boundary reads administrative boundary polygons from shapefiles
// and crops survey datasets to them.
package boundary

import (
	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/fieldepi/geostat-cli/internal/dataset"
)

// Load reads all polygon shapes from a shapefile. Non-polygon shapes are
// skipped and counted.
func Load(path string) ([]*geom.Polygon, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var polys []*geom.Polygon
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		polys = append(polys, toGeom(p))
	}

	if skipped > 0 {
		zap.L().Debug("boundary: skipped non-polygon shapes",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(polys) == 0 {
		return nil, eris.Errorf("boundary: no polygons in %s", path)
	}

	return polys, nil
}

// toGeom converts a go-shp polygon (flat point list plus part offsets)
// into a go-geom polygon with one linear ring per part.
func toGeom(p *shp.Polygon) *geom.Polygon {
	flat := make([]float64, 0, 2*len(p.Points))
	ends := make([]int, 0, len(p.Parts))

	for i, part := range p.Parts {
		end := len(p.Points)
		if i+1 < len(p.Parts) {
			end = int(p.Parts[i+1])
		}
		for _, pt := range p.Points[part:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		ends = append(ends, len(flat))
	}

	return geom.NewPolygonFlat(geom.XY, flat, ends)
}

// Contains reports whether the point lies inside any of the polygons,
// using the even-odd rule across rings so holes are respected.
func Contains(polys []*geom.Polygon, lon, lat float64) bool {
	coord := geom.Coord{lon, lat}
	inside := 0
	for _, p := range polys {
		for i := 0; i < p.NumLinearRings(); i++ {
			if xy.IsPointInRing(geom.XY, coord, p.LinearRing(i).FlatCoords()) {
				inside++
			}
		}
	}
	return inside%2 == 1
}

// Crop returns a copy of the dataset keeping only records inside the
// boundary polygons.
func Crop(ds *dataset.Dataset, polys []*geom.Polygon) *dataset.Dataset {
	out := &dataset.Dataset{Label: ds.Label, Schema: ds.Schema}
	for _, r := range ds.Records {
		if Contains(polys, r.Lon, r.Lat) {
			out.Records = append(out.Records, r)
		}
	}

	dropped := ds.Len() - out.Len()
	if dropped > 0 {
		zap.L().Info("boundary: cropped dataset",
			zap.String("dataset", ds.Label),
			zap.Int("kept", out.Len()),
			zap.Int("dropped", dropped),
		)
	}
	return out
}
