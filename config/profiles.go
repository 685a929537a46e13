package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/TwiN/deepmerge"
	"gopkg.in/yaml.v3"

	"github.com/tidepool-org/vitals/readings"
)

//go:embed profiles.yaml
var defaultProfiles []byte

// LoadProfiles merges the overrides over the built-in metric profiles
func LoadProfiles(overrides []byte) (readings.Profiles, error) {
	merged := defaultProfiles
	if len(overrides) > 0 {
		var err error
		merged, err = deepmerge.YAML(defaultProfiles, overrides, deepmerge.Config{
			PreventMultipleDefinitionsOfKeysWithPrimitiveValue: false,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to merge metric profiles: %w", err)
		}
	}

	profiles := readings.Profiles{}
	if err := yaml.Unmarshal(merged, &profiles); err != nil {
		return nil, fmt.Errorf("unable to decode metric profiles: %w", err)
	}
	if err := profiles.Validate(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func LoadProfilesFile(path string) (readings.Profiles, error) {
	if path == "" {
		return LoadProfiles(nil)
	}

	overrides, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read metric profiles: %w", err)
	}
	return LoadProfiles(overrides)
}
