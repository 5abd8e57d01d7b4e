package config

// Bomfile represents the structure of the bom.yaml configuration file.
type Bomfile struct {
	Version          string        `yaml:"version"`
	Workers          int           `yaml:"workers"`
	Exclude          []string      `yaml:"exclude"`
	OmitUnrecognized bool          `yaml:"omitUnrecognized"`
	Specimens        []SpecimenDTO `yaml:"specimens"`
}

// SpecimenDTO represents one specimen definition in the configuration.
type SpecimenDTO struct {
	Archive       string   `yaml:"archive"`
	ExtractPaths  []string `yaml:"extractPaths"`
	InstallPrefix string   `yaml:"installPrefix"`
}
