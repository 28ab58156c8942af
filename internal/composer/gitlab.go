package composer

import (
	"bytes"
	"fmt"
	"pipegen-cli/internal/domain"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Render serializes cfg for the given platform
func Render(cfg *domain.PipelineConfig, platform string, triggers *domain.Triggers) (string, error) {
	switch strings.ToLower(platform) {
	case "", domain.PlatformGitLab:
		return RenderGitLab(cfg)
	case domain.PlatformJenkins:
		return RenderJenkins(cfg, triggers), nil
	default:
		return "", fmt.Errorf("unsupported platform %q", platform)
	}
}

// RenderGitLab writes cfg as a GitLab CI document. Global sections come
// first, then jobs, each with a fixed field order. Empty fields are omitted.
func RenderGitLab(cfg *domain.PipelineConfig) (string, error) {
	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	if len(cfg.Stages) > 0 {
		addField(root, "stages", stringSeq(cfg.Stages))
	}
	if len(cfg.Variables) > 0 {
		addField(root, "variables", stringMap(cfg.Variables))
	}
	if len(cfg.Cache) > 0 {
		n, err := anyNode(cfg.Cache)
		if err != nil {
			return "", fmt.Errorf("failed to encode cache: %w", err)
		}
		addField(root, "cache", n)
	}
	if cfg.Workflow != nil && len(cfg.Workflow.Rules) > 0 {
		wf := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		addField(wf, "rules", rulesSeq(cfg.Workflow.Rules))
		addField(root, "workflow", wf)
	}
	if len(cfg.Default) > 0 {
		n, err := anyNode(cfg.Default)
		if err != nil {
			return "", fmt.Errorf("failed to encode default: %w", err)
		}
		addField(root, "default", n)
	}

	for _, job := range cfg.Jobs {
		n, err := jobNode(job)
		if err != nil {
			return "", fmt.Errorf("failed to encode job %s: %w", job.Name, err)
		}
		addField(root, job.Name, n)
	}

	var buf bytes.Buffer
	for _, note := range cfg.Notes {
		buf.WriteString("# " + note + "\n")
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func jobNode(job *domain.Job) (*yaml.Node, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if len(job.Extends) > 0 {
		addField(n, "extends", stringSeq(job.Extends))
	}
	addField(n, "stage", str(job.Stage))
	addField(n, "script", stringSeq(job.Script))
	if job.Image != "" {
		addField(n, "image", str(job.Image))
	}
	if len(job.Services) > 0 {
		addField(n, "services", stringSeq(job.Services))
	}
	if len(job.Variables) > 0 {
		addField(n, "variables", stringMap(job.Variables))
	}
	if len(job.Needs) > 0 {
		addField(n, "needs", needsSeq(job.Needs))
	}
	if len(job.Tags) > 0 {
		addField(n, "tags", stringSeq(job.Tags))
	}
	optional := []struct {
		key   string
		value any
	}{
		{"cache", job.Cache},
		{"artifacts", job.Artifacts},
	}
	for _, o := range optional {
		if isEmpty(o.value) {
			continue
		}
		v, err := anyNode(o.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.key, err)
		}
		addField(n, o.key, v)
	}
	if len(job.BeforeScript) > 0 {
		addField(n, "before_script", stringSeq(job.BeforeScript))
	}
	if len(job.AfterScript) > 0 {
		addField(n, "after_script", stringSeq(job.AfterScript))
	}
	for _, o := range []struct {
		key   string
		value any
	}{{"only", job.Only}, {"except", job.Except}} {
		if isEmpty(o.value) {
			continue
		}
		v, err := anyNode(o.value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", o.key, err)
		}
		addField(n, o.key, v)
	}
	if job.When != "" {
		addField(n, "when", str(job.When))
	}
	if job.AllowFailure {
		addField(n, "allow_failure", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
	}
	if job.Timeout != "" {
		addField(n, "timeout", str(job.Timeout))
	}
	if !isEmpty(job.Retry) {
		v, err := anyNode(job.Retry)
		if err != nil {
			return nil, fmt.Errorf("retry: %w", err)
		}
		addField(n, "retry", v)
	}
	if len(job.Rules) > 0 {
		addField(n, "rules", rulesSeq(job.Rules))
	}
	return n, nil
}

func addField(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, str(key), value)
}

// str builds a string scalar; the encoder quotes values that would
// otherwise read back as another type
func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func stringSeq(items []string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		n.Content = append(n.Content, str(item))
	}
	return n
}

func stringMap(m map[string]string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		addField(n, k, str(m[k]))
	}
	return n
}

func needsSeq(needs []domain.Need) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, need := range needs {
		if !need.Optional {
			n.Content = append(n.Content, str(need.Job))
			continue
		}
		obj := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		addField(obj, "job", str(need.Job))
		addField(obj, "optional", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
		n.Content = append(n.Content, obj)
	}
	return n
}

func rulesSeq(rules []domain.Rule) *yaml.Node {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, r := range rules {
		obj := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if r.If != "" {
			addField(obj, "if", str(r.If))
		}
		if len(r.Changes) > 0 {
			addField(obj, "changes", stringSeq(r.Changes))
		}
		if r.When != "" {
			addField(obj, "when", str(r.When))
		}
		n.Content = append(n.Content, obj)
	}
	return n
}

func anyNode(v any) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	default:
		return false
	}
}
