package composer

import (
	"bufio"
	"fmt"
	"pipegen-cli/internal/ciyaml"
	"pipegen-cli/internal/domain"
	"strings"
)

// Parse reads a GitLab CI document back into a PipelineConfig. Leading
// NOTE comments are restored as notes; hidden and reserved keys other than
// the global sections are ignored.
func Parse(text string) (*domain.PipelineConfig, error) {
	root, err := ciyaml.Parse([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}

	cfg := &domain.PipelineConfig{Notes: leadingNotes(text)}
	for _, entry := range ciyaml.Entries(root) {
		switch entry.Key {
		case "stages":
			var stages ciyaml.StringList
			if err := entry.Value.Decode(&stages); err != nil {
				return nil, fmt.Errorf("failed to parse stages: %w", err)
			}
			cfg.Stages = stages
		case "variables":
			var vars ciyaml.Variables
			if err := entry.Value.Decode(&vars); err != nil {
				return nil, fmt.Errorf("failed to parse variables: %w", err)
			}
			cfg.Variables = vars
		case "cache":
			if err := entry.Value.Decode(&cfg.Cache); err != nil {
				return nil, fmt.Errorf("failed to parse cache: %w", err)
			}
		case "default":
			if err := entry.Value.Decode(&cfg.Default); err != nil {
				return nil, fmt.Errorf("failed to parse default: %w", err)
			}
		case "workflow":
			var wf struct {
				Rules []domain.Rule `yaml:"rules"`
			}
			if err := entry.Value.Decode(&wf); err != nil {
				return nil, fmt.Errorf("failed to parse workflow: %w", err)
			}
			if len(wf.Rules) > 0 {
				cfg.Workflow = &domain.Workflow{Rules: wf.Rules}
			}
		default:
			if !ciyaml.IsJobKey(entry.Key) {
				continue
			}
			job, err := ciyaml.DecodeJob(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("failed to parse job %s: %w", entry.Key, err)
			}
			cfg.Jobs = append(cfg.Jobs, job.PipelineJob(entry.Key))
		}
	}
	return cfg, nil
}

func leadingNotes(text string) []string {
	var notes []string
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "#") {
			break
		}
		if note := strings.TrimSpace(strings.TrimPrefix(line, "#")); strings.HasPrefix(note, "NOTE:") {
			notes = append(notes, note)
		}
	}
	return notes
}
