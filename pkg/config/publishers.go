package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PublisherKeys maps a key id to a hex-encoded ed25519 public key.
type PublisherKeys map[string]string

// publishersFile is the YAML wire format of a publisher key file.
type publishersFile struct {
	Publishers PublisherKeys `yaml:"publishers"`
}

// LoadPublisherKeys reads a YAML file of trusted publisher signing keys.
//
//	publishers:
//	  deploy-key-1: 9a3f...
func LoadPublisherKeys(path string) (PublisherKeys, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read publisher keys %q: %w", path, err)
	}

	var f publishersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse publisher keys %q: %w", path, err)
	}
	if len(f.Publishers) == 0 {
		return nil, fmt.Errorf("config: publisher keys %q lists no publishers", path)
	}

	return f.Publishers, nil
}
