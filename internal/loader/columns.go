package loader

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/heliowatt/pvscope/internal/model"
)

// ColumnMap fixes which physical columns hold the timestamp and the value
// for one source role. Positions are 0-based.
type ColumnMap struct {
	TimestampCol int `yaml:"timestamp_col"`
	ValueCol     int `yaml:"value_col"`
}

// ColumnMaps maps each source role to its column positions.
type ColumnMaps map[model.Role]ColumnMap

// DefaultColumnMaps returns the positions of the real source exports:
// timestamp in column 3 for every role; irradiance in column 4; active
// energy and inverter output in column 5.
func DefaultColumnMaps() ColumnMaps {
	return ColumnMaps{
		model.RoleIrradiance:   {TimestampCol: 3, ValueCol: 4},
		model.RoleRevenueMeter: {TimestampCol: 3, ValueCol: 5},
		model.RoleInverter:     {TimestampCol: 3, ValueCol: 5},
	}
}

// LoadColumnMaps reads role→column overrides from a YAML file and merges
// them over the defaults. Roles absent from the file keep their defaults;
// unknown role keys are rejected.
func LoadColumnMaps(path string) (ColumnMaps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read column map %s", path)
	}

	var wrapper struct {
		Sources map[string]ColumnMap `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "loader: parse column map %s", path)
	}

	maps := DefaultColumnMaps()
	for name, cm := range wrapper.Sources {
		role := model.Role(name)
		if !role.Valid() {
			return nil, eris.Errorf("loader: column map %s: unknown role %q", path, name)
		}
		if cm.TimestampCol < 0 || cm.ValueCol < 0 {
			return nil, eris.Errorf("loader: column map %s: negative column index for role %q", path, name)
		}
		maps[role] = cm
	}

	return maps, nil
}
