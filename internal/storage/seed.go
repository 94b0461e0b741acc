package storage

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed seed/countries.yaml
var defaultCountries []byte

type seedFile struct {
	Countries []Country `yaml:"countries"`
}

// LoadSeed は国マスタの投入データを読み込みます。path が空なら組み込みデータを使います。
func LoadSeed(path string) ([]Country, error) {
	data := defaultCountries
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read seed file: %w", err)
		}
		data = raw
	}
	return parseSeed(data)
}

func parseSeed(data []byte) ([]Country, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file seedFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	seen := make(map[string]struct{}, len(file.Countries))
	for i, c := range file.Countries {
		if len(c.Alpha2) != 2 || len(c.Alpha3) != 3 || c.Name == "" || c.Region == "" {
			return nil, fmt.Errorf("seed entry %d (%q) is incomplete", i, c.Name)
		}
		if _, dup := seen[c.Alpha2]; dup {
			return nil, fmt.Errorf("seed entry %d duplicates alpha2 %s", i, c.Alpha2)
		}
		seen[c.Alpha2] = struct{}{}
	}
	return file.Countries, nil
}
