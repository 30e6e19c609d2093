package questions

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileEnv = "QUESTIONS_FILE"

//go:embed questions.yaml
var defaultFS embed.FS

// Set is a named list of questions. The YAML form is:
//
//	name: ldbc_default
//	version: 1
//	questions:
//	  - text: "..."
//	    enabled: false   # optional
//
// A plain list of strings is accepted as well.
type Set struct {
	Name      string
	Version   int
	Questions []string
}

type yamlSet struct {
	Name      string         `yaml:"name"`
	Version   int            `yaml:"version"`
	Questions []yamlQuestion `yaml:"questions"`
}

type yamlQuestion struct {
	Text    string `yaml:"text"`
	Enabled *bool  `yaml:"enabled"`
}

// UnmarshalYAML accepts either a bare string or a {text, enabled} mapping.
func (q *yamlQuestion) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		q.Text = node.Value
		return nil
	}
	type plain yamlQuestion
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*q = yamlQuestion(p)
	return nil
}

// Default returns the embedded question set.
func Default() (Set, error) {
	data, err := defaultFS.ReadFile("questions.yaml")
	if err != nil {
		return Set{}, err
	}
	return Parse(data)
}

// Load reads path, or the embedded default set when path is empty.
func Load(path string) (Set, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read questions %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Set{}, fmt.Errorf("parse questions %s: %w", path, err)
	}
	return s, nil
}

// LoadFromEnv loads QUESTIONS_FILE, falling back to the embedded set.
func LoadFromEnv() (Set, error) {
	return Load(os.Getenv(FileEnv))
}

func Parse(data []byte) (Set, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Set{}, err
	}
	var ys yamlSet
	if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
		if err := root.Content[0].Decode(&ys.Questions); err != nil {
			return Set{}, err
		}
	} else if err := root.Decode(&ys); err != nil {
		return Set{}, err
	}

	out := Set{Name: ys.Name, Version: ys.Version}
	for _, q := range ys.Questions {
		if q.Enabled != nil && !*q.Enabled {
			continue
		}
		text := strings.TrimSpace(q.Text)
		if text == "" {
			continue
		}
		out.Questions = append(out.Questions, text)
	}
	if len(out.Questions) == 0 {
		return Set{}, errors.New("question set is empty")
	}
	return out, nil
}
