package config

import (
	"fmt"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Projectfile represents the structure of the stow.yaml configuration file.
type Projectfile struct {
	Version string              `yaml:"version"`
	Root    string              `yaml:"root"`
	Cache   CacheDTO            `yaml:"cache"`
	Log     LogDTO              `yaml:"log"`
	Tasks   map[string]*TaskDTO `yaml:"tasks"`
}

// CacheDTO holds the cache settings. They are read through viper, the
// fields exist so that unknown keys are caught by the strict decoder.
type CacheDTO struct {
	Enabled *bool  `yaml:"enabled"`
	Shared  *bool  `yaml:"shared"`
	Dir     string `yaml:"dir"`
}

// LogDTO holds the log settings.
type LogDTO struct {
	Format string `yaml:"format"`
}

// TaskDTO represents a task definition in the configuration.
type TaskDTO struct {
	Input       []InputDTO        `yaml:"input"`
	Cmd         []string          `yaml:"cmd"`
	Target      []string          `yaml:"target"`
	Environment map[string]string `yaml:"environment"`
	WorkingDir  string            `yaml:"workingDir"`
	Cache       *bool             `yaml:"cache"`
	Timeout     string            `yaml:"timeout"`
}

// InputDTO is a declared input. It is written either as a plain path or as a
// mapping with path and sensitivity.
type InputDTO struct {
	Path        string `yaml:"path"`
	Sensitivity string `yaml:"sensitivity"`
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (in *InputDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		in.Path = node.Value
		return nil
	}

	if node.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(node.Content); i += 2 {
			switch key := node.Content[i]; key.Value {
			case "path", "sensitivity":
			default:
				return zerr.With(zerr.New(fmt.Sprintf("unknown input field %q", key.Value)), "line", key.Line)
			}
		}
	}

	type plain InputDTO
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if p.Path == "" {
		return zerr.With(zerr.New("input mapping requires a path"), "line", node.Line)
	}
	*in = InputDTO(p)
	return nil
}
