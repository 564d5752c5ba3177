// Package geo provides the great-circle path utilities behind the route
// corridor endpoints.
package geo

import "math"

// EarthRadiusNm is the mean Earth radius in nautical miles.
const EarthRadiusNm = 3440.065

// Point is a geographic position in degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// DistanceNm returns the great-circle distance between two points in
// nautical miles.
func DistanceNm(a, b Point) float64 {
	return EarthRadiusNm * angleBetween(toVector(a), toVector(b))
}

// Densify inserts intermediate points along each leg of path so that no
// output segment exceeds maxSegmentNm of great-circle distance. The
// original waypoints are preserved exactly, endpoints included.
// Interpolation follows the great circle, so legs crossing the
// antimeridian take the short way around; interpolated longitudes are
// normalized to [-180, 180).
func Densify(path []Point, maxSegmentNm float64) []Point {
	if len(path) < 2 || maxSegmentNm <= 0 {
		return append([]Point(nil), path...)
	}
	out := make([]Point, 0, len(path))
	out = append(out, path[0])
	for i := 1; i < len(path); i++ {
		out = append(out, densifyLeg(path[i-1], path[i], maxSegmentNm)...)
	}
	return out
}

// densifyLeg returns the interpolated points plus the leg end, excluding
// the leg start. Coincident and antipodal endpoints are returned
// undensified; the latter have no unique great circle.
func densifyLeg(from, to Point, maxSegmentNm float64) []Point {
	av := toVector(from)
	bv := toVector(to)
	angle := angleBetween(av, bv)
	dist := EarthRadiusNm * angle

	// sin(pi) computed from float inputs lands near 1e-16 rather than 0,
	// so antipodal legs need a tolerance, not an equality check.
	segments := int(math.Ceil(dist / maxSegmentNm))
	sinAngle := math.Sin(angle)
	if segments <= 1 || sinAngle < 1e-12 {
		return []Point{to}
	}

	pts := make([]Point, 0, segments)
	for i := 1; i < segments; i++ {
		f := float64(i) / float64(segments)
		wa := math.Sin((1-f)*angle) / sinAngle
		wb := math.Sin(f*angle) / sinAngle
		pts = append(pts, toPoint(vector{
			x: wa*av.x + wb*bv.x,
			y: wa*av.y + wb*bv.y,
			z: wa*av.z + wb*bv.z,
		}))
	}
	return append(pts, to)
}

// PathLengthNm sums the great-circle leg distances of a path.
func PathLengthNm(path []Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += DistanceNm(path[i-1], path[i])
	}
	return total
}

// NormalizeLon maps a longitude in degrees into [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

type vector struct{ x, y, z float64 }

func toVector(p Point) vector {
	lat := p.Lat * math.Pi / 180
	lon := p.Lon * math.Pi / 180
	return vector{
		x: math.Cos(lat) * math.Cos(lon),
		y: math.Cos(lat) * math.Sin(lon),
		z: math.Sin(lat),
	}
}

func toPoint(v vector) Point {
	norm := math.Sqrt(v.x*v.x + v.y*v.y + v.z*v.z)
	if norm == 0 {
		return Point{}
	}
	lat := math.Asin(v.z/norm) * 180 / math.Pi
	lon := math.Atan2(v.y, v.x) * 180 / math.Pi
	return Point{Lon: NormalizeLon(lon), Lat: lat}
}

// angleBetween returns the central angle between two unit vectors. The
// atan2 form stays accurate for very small and near-straight angles where
// acos of a dot product loses precision.
func angleBetween(a, b vector) float64 {
	dot := a.x*b.x + a.y*b.y + a.z*b.z
	cx := a.y*b.z - a.z*b.y
	cy := a.z*b.x - a.x*b.z
	cz := a.x*b.y - a.y*b.x
	cross := math.Sqrt(cx*cx + cy*cy + cz*cz)
	return math.Atan2(cross, dot)
}
