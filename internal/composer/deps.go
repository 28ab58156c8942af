package composer

import (
	"fmt"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/graph"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// stages whose jobs wait for every install job
var afterInstallStages = []string{"lint", "test", "build", "security", "deploy"}

// resolveDependencies drops needs on unknown jobs, injects the conventional
// ones and clears the needs of every job that can reach a cycle. It returns
// one warning per cleared job.
func (c *Composer) resolveDependencies(jobs []*domain.Job) []string {
	exists := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		exists[j.Name] = true
	}

	var install, build, tests []string
	for _, j := range jobs {
		switch j.Stage {
		case "install":
			install = append(install, j.Name)
		case "build":
			build = append(build, j.Name)
		case "test":
			if strings.Contains(strings.ToLower(j.Name), "test") {
				tests = append(tests, j.Name)
			}
		}
	}

	for _, j := range jobs {
		kept := j.Needs[:0]
		for _, n := range j.Needs {
			if !exists[n.Job] {
				c.logger.Debug("Dropping need on unknown job", zap.String("job", j.Name), zap.String("need", n.Job))
				continue
			}
			kept = append(kept, n)
		}
		j.Needs = kept

		if slices.Contains(afterInstallStages, j.Stage) {
			j.Needs = appendNeeds(j.Needs, install)
		}
		if j.Stage == "build" && strings.Contains(strings.ToLower(j.Name), "test") {
			j.Needs = appendNeeds(j.Needs, tests)
		}
		if j.Stage == "deploy" {
			j.Needs = appendNeeds(j.Needs, build)
		}
		j.Needs = dedupNeeds(j.Needs)
	}

	order := make([]string, 0, len(jobs))
	g := make(graph.Graph, len(jobs))
	for _, j := range jobs {
		order = append(order, j.Name)
		g[j.Name] = j.NeedNames()
	}

	var warnings []string
	for _, name := range graph.FindCycles(order, g, graph.ClearEdges) {
		for _, j := range jobs {
			if j.Name == name {
				j.Needs = nil
			}
		}
		c.logger.Warn("Circular dependency detected, clearing needs", zap.String("job", name))
		warnings = append(warnings, fmt.Sprintf("Circular dependency detected for job '%s', needs cleared", name))
	}
	return warnings
}

func appendNeeds(needs []domain.Need, names []string) []domain.Need {
	for _, name := range names {
		needs = append(needs, domain.Need{Job: name})
	}
	return needs
}

// dedupNeeds keeps the first entry per job name
func dedupNeeds(needs []domain.Need) []domain.Need {
	if len(needs) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(needs))
	out := make([]domain.Need, 0, len(needs))
	for _, n := range needs {
		if n.Job == "" || seen[n.Job] {
			continue
		}
		seen[n.Job] = true
		out = append(out, n)
	}
	return out
}

// buildWorkflow turns triggers into pipeline-level OR rules. No triggers
// means no workflow section and the platform default applies.
func buildWorkflow(t *domain.Triggers) *domain.Workflow {
	if t == nil {
		return nil
	}
	var rules []domain.Rule
	for _, branch := range t.OnPush {
		rules = append(rules, domain.Rule{If: fmt.Sprintf(`$CI_COMMIT_BRANCH == "%s"`, branch)})
	}
	if t.OnMergeRequest {
		rules = append(rules, domain.Rule{If: `$CI_PIPELINE_SOURCE == "merge_request_event"`})
	}
	if t.OnTags != "" {
		rules = append(rules, domain.Rule{If: fmt.Sprintf(`$CI_COMMIT_TAG =~ /%s/`, t.OnTags)})
	}
	if t.Schedule {
		rules = append(rules, domain.Rule{If: `$CI_PIPELINE_SOURCE == "schedule"`})
	}
	if t.Manual {
		rules = append(rules, domain.Rule{If: `$CI_PIPELINE_SOURCE == "web"`})
	}
	if len(rules) == 0 {
		return nil
	}
	return &domain.Workflow{Rules: rules}
}
