package geo

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"

	"citymap/internal/datafile"
	"citymap/internal/types"
)

// readFeatures loads path and returns its features, accepting either a
// FeatureCollection or a lone Feature document.
func readFeatures(path string) ([]*geojson.Feature, error) {
	data, err := datafile.ReadFile(path)
	if err != nil {
		if isNotExist(err) {
			return nil, types.NewLoadError(types.ErrCodeLoadFileMissing, path, err)
		}
		return nil, types.NewLoadError(types.ErrCodeLoadMalformed, path, err)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, types.NewLoadError(types.ErrCodeLoadMalformed, path, err)
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, types.NewLoadError(types.ErrCodeLoadMalformed, path, err)
		}
		return fc.Features, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, types.NewLoadError(types.ErrCodeLoadMalformed, path, err)
		}
		return []*geojson.Feature{f}, nil
	default:
		return nil, types.NewLoadError(types.ErrCodeLoadUnsupportedFormat, path,
			fmt.Errorf("top-level type %q is not a Feature or FeatureCollection", head.Type))
	}
}
