package templates

import (
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/patterns"
	"strings"

	"go.uber.org/zap"
)

// Infrastructure template directories
const (
	dirDocker     = "docker"
	dirKubernetes = "kubernetes"
	dirTerraform  = "terraform"
	dirDeploy     = "deploy"
	dirGeneric    = "generic"
	dirBase       = "base"
)

// categories with their own matching rules
const (
	categoryLint        = "lint"
	categoryTest        = "test"
	categoryDockerPush  = "docker_push"
	categoryIntegration = "integration"
)

type templateID struct {
	language, framework, name string
}

type selection struct {
	seen map[templateID]bool
	out  []domain.Template
}

func (s *selection) add(t domain.Template) bool {
	id := templateID{t.Language, t.Framework, t.Name}
	if s.seen[id] {
		return false
	}
	s.seen[id] = true
	s.out = append(s.out, t)
	return true
}

// Select returns the templates matching the analyzed stack. Each category
// has its own rule: lint by language, tests by runner, the rest by primary
// framework with a language-only fallback, infrastructure by flag.
func (l *Library) Select(analysis *domain.StackAnalysis, settings *domain.UserSettings) []domain.Template {
	if analysis == nil {
		analysis = &domain.StackAnalysis{}
	}
	if settings == nil {
		settings = &domain.UserSettings{}
	}
	sel := &selection{seen: map[templateID]bool{}}

	framework := normalizeFramework(analysis.PrimaryFramework())
	for _, lang := range analysis.Languages {
		dir := patterns.TemplateDirForLanguage(strings.ToLower(lang))
		l.selectLint(sel, dir)
		l.selectTests(sel, dir, analysis.TestRunners)
		l.selectByFramework(sel, dir, framework)
	}

	if analysis.Docker {
		hasRegistry := settings.DockerRegistry != "" || settings.DockerImage != ""
		hasCompose := analysis.HasEntryType(domain.EntryTypeDockerCompose)
		l.each(func(t domain.Template) {
			if t.Language != dirDocker {
				return
			}
			if t.Category == categoryDockerPush && !hasRegistry {
				return
			}
			if t.Category == categoryIntegration && !hasCompose {
				return
			}
			sel.add(t)
		})
	}
	if analysis.Kubernetes || settings.DeployTarget == "kubernetes" {
		l.selectDir(sel, dirKubernetes, "")
	}
	if analysis.Terraform {
		l.selectDir(sel, dirTerraform, "")
	}
	if settings.DeployTarget == "ssh" || settings.DeployTarget == "compose" {
		l.selectDir(sel, dirDeploy, settings.DeployTarget)
	}

	if len(sel.out) == 0 {
		l.logger.Warn("No specific templates matched, trying generic ones")
		l.selectDir(sel, dirGeneric, "")
		l.selectDir(sel, dirBase, "")
	}

	l.logger.Debug("Templates selected", zap.Int("count", len(sel.out)))
	return sel.out
}

func (l *Library) each(fn func(t domain.Template)) {
	for _, t := range l.templates {
		fn(t)
	}
}

func (l *Library) selectDir(sel *selection, dir, framework string) {
	l.each(func(t domain.Template) {
		if t.Language == dir && (framework == "" || t.Framework == framework) {
			sel.add(t)
		}
	})
}

func (l *Library) selectLint(sel *selection, dir string) {
	l.each(func(t domain.Template) {
		if t.Language == dir && t.Framework == "" && t.Category == categoryLint {
			sel.add(t)
		}
	})
}

// selectTests picks runner-specific templates and falls back to the
// language's generic test template when no runner has one
func (l *Library) selectTests(sel *selection, dir string, runners []string) {
	if len(runners) == 0 {
		return
	}
	matched := false
	for _, runner := range runners {
		category, ok := patterns.TestTemplateNames[strings.ToLower(strings.TrimSpace(runner))]
		if !ok {
			continue
		}
		l.each(func(t domain.Template) {
			if t.Language == dir && t.Framework == "" && t.Category == category {
				sel.add(t)
				matched = true
			}
		})
	}
	if matched {
		return
	}
	l.each(func(t domain.Template) {
		if t.Language == dir && t.Framework == "" && t.Category == categoryTest {
			sel.add(t)
		}
	})
}

// selectByFramework adds install, build, security and deploy templates.
// Framework templates win per category over the language-only ones.
func (l *Library) selectByFramework(sel *selection, dir, framework string) {
	covered := map[string]bool{}
	if framework != "" {
		l.each(func(t domain.Template) {
			if t.Language == dir && t.Framework == framework && !isLintOrTest(t.Category) {
				sel.add(t)
				covered[t.Category] = true
			}
		})
	}
	l.each(func(t domain.Template) {
		if t.Language == dir && t.Framework == "" && !isLintOrTest(t.Category) && !covered[t.Category] {
			sel.add(t)
		}
	})
}

func isLintOrTest(category string) bool {
	return category == categoryLint || category == categoryTest || strings.HasPrefix(category, categoryTest+"_")
}

func normalizeFramework(fw string) string {
	fw = strings.ToLower(fw)
	return strings.NewReplacer("-", "_", ".", "_").Replace(fw)
}
