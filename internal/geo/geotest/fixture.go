// Package geotest writes small boundary fixtures for tests.
package geotest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Zips are the zip codes of the fixture subdivisions, left to right.
var Zips = []int{60601, 60602, 60603}

// City is a 3x1 rectangle split into three unit squares, one per zip.
const City = `{"type":"Feature","properties":{"name":"Chicago"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[3,0],[3,1],[0,1],[0,0]]]}}`

// ZipCollection builds the subdivision FeatureCollection. The zip property
// alternates between number and string encodings.
func ZipCollection() string {
	var features []string
	for i, zip := range Zips {
		var prop string
		switch i {
		case 1:
			prop = fmt.Sprintf("%d", zip)
		case 2:
			prop = fmt.Sprintf(`"%d-0001"`, zip)
		default:
			prop = fmt.Sprintf(`"%d"`, zip)
		}
		x0, x1 := i, i+1
		features = append(features, fmt.Sprintf(
			`{"type":"Feature","properties":{"zip":%s},"geometry":{"type":"Polygon","coordinates":[[[%d,0],[%d,0],[%d,1],[%d,1],[%d,0]]]}}`,
			prop, x0, x1, x1, x0, x0))
	}
	return `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
}

// Write stores the fixture files in dir and returns their paths.
func Write(t testing.TB, dir string) (cityPath, zipPath string) {
	t.Helper()
	cityPath = filepath.Join(dir, "chicago.geojson")
	zipPath = filepath.Join(dir, "chicago_zips.geojson")
	if err := os.WriteFile(cityPath, []byte(City), 0o644); err != nil {
		t.Fatalf("write city fixture: %v", err)
	}
	if err := os.WriteFile(zipPath, []byte(ZipCollection()), 0o644); err != nil {
		t.Fatalf("write zip fixture: %v", err)
	}
	return cityPath, zipPath
}
