package geo

import "math"

const earthRadiusM = 6371000

// HaversineM returns the great-circle distance in meters between two
// latitude/longitude pairs.
func HaversineM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// HaversineKm returns the great-circle distance in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	return HaversineM(lat1, lon1, lat2, lon2) / 1000
}

// SpeedKmh converts a distance in meters covered over elapsedS seconds into
// km/h. Returns 0 for non-positive elapsed time.
func SpeedKmh(distanceM, elapsedS float64) float64 {
	if elapsedS <= 0 {
		return 0
	}
	return (distanceM / elapsedS) * 3.6
}

// ValidCoords reports whether the pair is a finite, in-range WGS84 position.
func ValidCoords(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

func toRad(degrees float64) float64 {
	return degrees * (math.Pi / 180)
}
