// Package ciyaml decodes GitLab CI documents into node trees and typed job
// specs. Fields whose shape varies on the wire (scalar or list, string or
// object) are normalized here so callers only see one form.
package ciyaml

import (
	"errors"
	"fmt"
	"pipegen-cli/internal/domain"
	"strings"

	"gopkg.in/yaml.v3"
)

// reservedKeys are top-level keywords that never name a job
var reservedKeys = map[string]bool{
	"stages":        true,
	"variables":     true,
	"cache":         true,
	"include":       true,
	"workflow":      true,
	"default":       true,
	"image":         true,
	"services":      true,
	"before_script": true,
	"after_script":  true,
}

// ErrNotMapping is returned when a document's root is not a mapping
var ErrNotMapping = errors.New("document root is not a mapping")

// IsReserved reports whether key is a global keyword rather than a job
func IsReserved(key string) bool {
	return reservedKeys[key]
}

// IsHidden reports whether key names a hidden job used only through extends
func IsHidden(key string) bool {
	return strings.HasPrefix(key, ".")
}

// IsJobKey reports whether a top-level key defines a runnable job
func IsJobKey(key string) bool {
	return !IsReserved(key) && !IsHidden(key)
}

// Entry is one key/value pair of a mapping node
type Entry struct {
	Key   string
	Line  int
	Value *yaml.Node
}

// Parse decodes text and returns the root mapping. An empty document yields
// an empty mapping.
func Parse(text []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, ErrNotMapping
	}
	return root, nil
}

// Entries lists the pairs of a mapping node in document order
func Entries(mapping *yaml.Node) []Entry {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	entries := make([]Entry, 0, len(mapping.Content)/2)
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		k := mapping.Content[i]
		entries = append(entries, Entry{Key: k.Value, Line: k.Line, Value: mapping.Content[i+1]})
	}
	return entries
}

// Lookup returns the value for key in a mapping node, or nil
func Lookup(mapping *yaml.Node, key string) *yaml.Node {
	for _, e := range Entries(mapping) {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// StringList accepts either a scalar or a sequence. Sequence items that are
// mappings contribute their "name" field, as GitLab allows for services.
type StringList []string

func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = StringList{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make(StringList, 0, len(value.Content))
		for _, item := range value.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				out = append(out, item.Value)
			case yaml.MappingNode:
				if name := Lookup(item, "name"); name != nil && name.Kind == yaml.ScalarNode {
					out = append(out, name.Value)
				}
			case yaml.SequenceNode:
				// nested script lists are flattened by GitLab
				var nested StringList
				if err := nested.UnmarshalYAML(item); err != nil {
					return err
				}
				out = append(out, nested...)
			default:
				return fmt.Errorf("line %d: unsupported list item", item.Line)
			}
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list", value.Line)
	}
}

// Image accepts "name" or {name: ..., entrypoint: ...}
type Image string

func (i *Image) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*i = Image(value.Value)
		return nil
	case yaml.MappingNode:
		if name := Lookup(value, "name"); name != nil {
			*i = Image(name.Value)
			return nil
		}
		return fmt.Errorf("line %d: image mapping without name", value.Line)
	default:
		return fmt.Errorf("line %d: image must be a string or a mapping", value.Line)
	}
}

// Needs is the tagged-union needs list: bare job names or {job, optional}
type Needs []domain.Need

func (n *Needs) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: needs must be a list", value.Line)
	}
	out := make(Needs, 0, len(value.Content))
	for _, item := range value.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, domain.Need{Job: item.Value})
		case yaml.MappingNode:
			var obj struct {
				Job      string `yaml:"job"`
				Optional bool   `yaml:"optional"`
			}
			if err := item.Decode(&obj); err != nil {
				return err
			}
			if obj.Job == "" {
				// cross-pipeline and artifact-only needs carry no job name
				continue
			}
			out = append(out, domain.Need{Job: obj.Job, Optional: obj.Optional})
		default:
			return fmt.Errorf("line %d: unsupported needs entry", item.Line)
		}
	}
	*n = out
	return nil
}

// Variables accepts plain values or the {value, description} form
type Variables map[string]string

func (v *Variables) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: variables must be a mapping", value.Line)
	}
	out := Variables{}
	for _, e := range Entries(value) {
		switch e.Value.Kind {
		case yaml.ScalarNode:
			out[e.Key] = e.Value.Value
		case yaml.MappingNode:
			if val := Lookup(e.Value, "value"); val != nil {
				out[e.Key] = val.Value
			} else {
				out[e.Key] = ""
			}
		default:
			return fmt.Errorf("line %d: variable %s has an unsupported value", e.Line, e.Key)
		}
	}
	*v = out
	return nil
}

// Flag accepts a boolean or a mapping such as allow_failure: {exit_codes: [1]}
type Flag bool

func (f *Flag) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		*f = true
		return nil
	}
	var b bool
	if err := value.Decode(&b); err != nil {
		return err
	}
	*f = Flag(b)
	return nil
}

// Job is the decoded form of one job mapping
type Job struct {
	Stage        string            `yaml:"stage"`
	Script       StringList        `yaml:"script"`
	BeforeScript StringList        `yaml:"before_script"`
	AfterScript  StringList        `yaml:"after_script"`
	Image        Image             `yaml:"image"`
	Services     StringList        `yaml:"services"`
	Variables    Variables         `yaml:"variables"`
	Needs        Needs             `yaml:"needs"`
	Dependencies StringList        `yaml:"dependencies"`
	Tags         StringList        `yaml:"tags"`
	Cache        map[string]any    `yaml:"cache"`
	Artifacts    map[string]any    `yaml:"artifacts"`
	Only         any               `yaml:"only"`
	Except       any               `yaml:"except"`
	When         string            `yaml:"when"`
	AllowFailure Flag              `yaml:"allow_failure"`
	Timeout      string            `yaml:"timeout"`
	Retry        any               `yaml:"retry"`
	Rules        []domain.Rule     `yaml:"rules"`
	Extends      StringList        `yaml:"extends"`
}

// DecodeJob decodes a job mapping node
func DecodeJob(node *yaml.Node) (*Job, error) {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, errors.New("job definition is not a mapping")
	}
	var job Job
	if err := node.Decode(&job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Template converts the decoded job into a library template
func (j *Job) Template(name string) domain.Template {
	return domain.Template{
		Name:         name,
		Stage:        j.Stage,
		Script:       j.Script,
		BeforeScript: j.BeforeScript,
		AfterScript:  j.AfterScript,
		Image:        string(j.Image),
		Services:     j.Services,
		Variables:    j.Variables,
		Needs:        j.Needs,
		Dependencies: j.Dependencies,
		Tags:         j.Tags,
		Cache:        j.Cache,
		Artifacts:    j.Artifacts,
		Only:         j.Only,
		Except:       j.Except,
		When:         j.When,
		AllowFailure: bool(j.AllowFailure),
		Timeout:      j.Timeout,
		Retry:        j.Retry,
		Rules:        j.Rules,
	}
}

// PipelineJob converts the decoded job into a pipeline job
func (j *Job) PipelineJob(name string) *domain.Job {
	return &domain.Job{
		Name:         name,
		Stage:        j.Stage,
		Script:       j.Script,
		Image:        string(j.Image),
		Services:     j.Services,
		Variables:    j.Variables,
		Needs:        j.Needs,
		Tags:         j.Tags,
		Cache:        j.Cache,
		Artifacts:    j.Artifacts,
		BeforeScript: j.BeforeScript,
		AfterScript:  j.AfterScript,
		Only:         j.Only,
		Except:       j.Except,
		When:         j.When,
		AllowFailure: bool(j.AllowFailure),
		Timeout:      j.Timeout,
		Retry:        j.Retry,
		Rules:        j.Rules,
		Extends:      j.Extends,
	}
}
