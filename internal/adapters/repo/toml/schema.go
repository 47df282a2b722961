package toml

import "fmt"

const currentSchemaVersion = 1

func validateVersion(label string, version int) error {
	if version > currentSchemaVersion {
		return fmt.Errorf("unsupported %s schema version %d (current %d)", label, version, currentSchemaVersion)
	}

	return nil
}

func defaultVersion(version int) int {
	if version == 0 {
		return currentSchemaVersion
	}
	return version
}

type observationsSchema struct {
	Version      int                 `toml:"version"`
	Observations []observationSchema `toml:"observations"`
}

func (s *observationsSchema) applyDefaults() {
	s.Version = defaultVersion(s.Version)
}

type observationSchema struct {
	Identifier string `toml:"identifier"`
	Timestamp  string `toml:"timestamp"`
	Duration   string `toml:"duration"`
}

type stateSchema struct {
	Version   int    `toml:"version"`
	State     string `toml:"state"`
	UpdatedAt string `toml:"updated_at,omitempty"`
}

func (s *stateSchema) applyDefaults() {
	s.Version = defaultVersion(s.Version)
	if s.State == "" {
		s.State = "unknown"
	}
}

type consentSchema struct {
	Version    int    `toml:"version"`
	Granted    bool   `toml:"granted"`
	Restricted bool   `toml:"restricted"`
	UpdatedAt  string `toml:"updated_at,omitempty"`
}

func (s *consentSchema) applyDefaults() {
	s.Version = defaultVersion(s.Version)
}

type diagnosisKeysSchema struct {
	Version int                  `toml:"version"`
	Keys    []diagnosisKeySchema `toml:"keys"`
}

func (s *diagnosisKeysSchema) applyDefaults() {
	s.Version = defaultVersion(s.Version)
}

type diagnosisKeySchema struct {
	Key string `toml:"key"`
	Day string `toml:"day"`
}
