package composer

import (
	"fmt"
	"maps"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/patterns"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// GitLab's implicit stages; they are never declared and never filtered
const (
	stagePre  = ".pre"
	stagePost = ".post"
)

// Composer turns selected templates into a rendered pipeline. It holds no
// per-request state and is safe for concurrent use.
type Composer struct {
	logger *zap.Logger
}

// NewComposer creates a new pipeline composer
func NewComposer(logger *zap.Logger) *Composer {
	return &Composer{logger: logger}
}

// Compose merges templates into jobs, orders stages, resolves needs, and
// renders the result for the requested platform. An empty template list, or
// one that leaves no job after stage filtering, yields the minimal pipeline.
func (c *Composer) Compose(
	templates []domain.Template,
	analysis *domain.StackAnalysis,
	settings *domain.UserSettings,
) (*domain.Composition, error) {
	if err := analysis.Validate(); err != nil {
		return nil, err
	}
	if settings == nil {
		settings = &domain.UserSettings{}
	}
	s := *settings
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var warnings []string
	var cfg *domain.PipelineConfig
	minimal := false

	jobs, mergeWarnings := c.mergeJobs(templates, &s)
	warnings = append(warnings, mergeWarnings...)
	if len(jobs) == 0 {
		c.logger.Info("No job templates available, composing minimal pipeline",
			zap.Int("templates", len(templates)))
		cfg = minimalPipeline(analysis, &s)
		minimal = true
	} else {
		stages := slices.Clone(s.Stages)
		if len(stages) == 0 {
			stages = detectStages(jobs)
		}
		cfg = &domain.PipelineConfig{Stages: stages, Jobs: orderJobs(jobs, stages)}
		warnings = append(warnings, c.resolveDependencies(cfg.Jobs)...)
	}

	if len(s.Variables) > 0 {
		cfg.Variables = s.Variables
	}
	cfg.Workflow = buildWorkflow(s.Triggers)
	cfg.Notes = missingStageNotes(cfg)

	text, err := Render(cfg, s.Platform, s.Triggers)
	if err != nil {
		return nil, fmt.Errorf("failed to render pipeline: %w", err)
	}

	c.logger.Info("Pipeline composed",
		zap.String("platform", s.Platform),
		zap.Int("jobs", len(cfg.Jobs)),
		zap.Int("stages", len(cfg.Stages)),
		zap.Bool("minimal", minimal))

	return &domain.Composition{
		Config:   cfg,
		Text:     text,
		Platform: s.Platform,
		Warnings: nonNil(warnings),
		Minimal:  minimal,
	}, nil
}

// mergeJobs converts sorted templates into uniquely named jobs
func (c *Composer) mergeJobs(templates []domain.Template, settings *domain.UserSettings) ([]*domain.Job, []string) {
	sorted := slices.Clone(templates)
	slices.SortStableFunc(sorted, func(a, b domain.Template) int {
		if d := rank(a.Framework == "") - rank(b.Framework == ""); d != 0 {
			return d
		}
		if d := rank(!isCombined(a.Name)) - rank(!isCombined(b.Name)); d != 0 {
			return d
		}
		return strings.Compare(a.Name, b.Name)
	})

	requested := settings.Stages
	var jobs []*domain.Job
	var warnings []string
	type jobKey struct{ language, name, stage string }
	seen := map[jobKey]bool{}
	names := newNameAllocator()

	for i, t := range sorted {
		base := t.Name
		if base == "" {
			base = fmt.Sprintf("job_%d", i)
		}

		stage := inferStage(t, requested)
		if len(requested) > 0 && !slices.Contains(requested, stage) && !isImplicitStage(stage) {
			c.logger.Debug("Skipping job outside requested stages",
				zap.String("job", base), zap.String("stage", stage), zap.Strings("requested", requested))
			continue
		}

		key := jobKey{t.Language, base, stage}
		if seen[key] {
			c.logger.Debug("Skipping duplicate job", zap.String("job", base), zap.String("stage", stage))
			continue
		}

		if stage == "build" {
			if tech, ok := combinedTechnology(base); ok {
				// a combined job supersedes separate build and push jobs
				before := len(jobs)
				jobs = slices.DeleteFunc(jobs, func(j *domain.Job) bool {
					return j.Stage == "build" && isSeparateFor(j.Name, tech)
				})
				if removed := before - len(jobs); removed > 0 {
					warnings = append(warnings, fmt.Sprintf("Replaced %d separate %s job(s) with %s", removed, tech, base))
				}
			} else if supersededByCombined(jobs, base) {
				c.logger.Debug("Skipping job covered by a combined job", zap.String("job", base))
				continue
			}
		}

		seen[key] = true
		jobs = append(jobs, newJob(names.allocate(base), stage, t, settings))
	}
	return jobs, warnings
}

func rank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// inferStage picks the explicit stage, else a keyword match, else the first
// requested stage, else build
func inferStage(t domain.Template, requested []string) string {
	if t.Stage != "" {
		return t.Stage
	}
	if stage := patterns.SuggestStage(t.Name, t.Script, requested); stage != "" {
		return stage
	}
	if len(requested) > 0 {
		return requested[0]
	}
	return "build"
}

func isImplicitStage(stage string) bool {
	return stage == stagePre || stage == stagePost
}

func isCombined(name string) bool {
	return strings.Contains(strings.ToLower(name), "_and_")
}

// combinedTechnology extracts "docker" from names like build_and_push_docker
// or docker_build_and_push
func combinedTechnology(name string) (string, bool) {
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "build_and_push") {
		return "", false
	}
	tech := strings.Trim(strings.Replace(lower, "build_and_push", "", 1), "_")
	return tech, true
}

func isSeparateFor(name, tech string) bool {
	lower := strings.ToLower(name)
	for _, action := range []string{"build", "push"} {
		if lower == action+"_"+tech || lower == tech+"_"+action {
			return true
		}
	}
	return false
}

func supersededByCombined(jobs []*domain.Job, name string) bool {
	for _, j := range jobs {
		if j.Stage != "build" {
			continue
		}
		if tech, ok := combinedTechnology(j.Name); ok && isSeparateFor(name, tech) {
			return true
		}
	}
	return false
}

func newJob(name, stage string, t domain.Template, settings *domain.UserSettings) *domain.Job {
	needs := slices.Clone(t.Needs)
	for _, dep := range t.Dependencies {
		needs = append(needs, domain.Need{Job: dep})
	}
	image := t.Image
	if image == "" {
		image = defaultImage(t.Language, settings)
	}
	return &domain.Job{
		Name:         name,
		Stage:        stage,
		Script:       slices.Clone(t.Script),
		Image:        image,
		Services:     slices.Clone(t.Services),
		Variables:    maps.Clone(t.Variables),
		Needs:        dedupNeeds(needs),
		Tags:         slices.Clone(t.Tags),
		Cache:        t.Cache,
		Artifacts:    t.Artifacts,
		BeforeScript: slices.Clone(t.BeforeScript),
		AfterScript:  slices.Clone(t.AfterScript),
		Only:         t.Only,
		Except:       t.Except,
		When:         t.When,
		AllowFailure: t.AllowFailure,
		Timeout:      t.Timeout,
		Retry:        t.Retry,
		Rules:        slices.Clone(t.Rules),
		Language:     t.Language,
		Framework:    t.Framework,
		Category:     t.Category,
	}
}

// defaultImage is used for templates that do not name an image
func defaultImage(language string, settings *domain.UserSettings) string {
	if img := settings.Images[language]; img != "" {
		return img
	}
	if img := settings.Images["default"]; img != "" {
		return img
	}
	switch language {
	case "python":
		return "python:" + orDefault(settings.PythonVersion, "3.11")
	case "node", "javascript", "typescript":
		return "node:" + orDefault(settings.NodeVersion, "18")
	case "go":
		return "golang:" + orDefault(settings.GoVersion, "1.22")
	case "java":
		return "maven:3-eclipse-temurin-" + orDefault(settings.JavaVersion, "17")
	default:
		return "alpine:latest"
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// nameAllocator hands out job names, suffixing _1, _2, ... on collision
type nameAllocator struct {
	used    map[string]bool
	counter map[string]int
}

func newNameAllocator() *nameAllocator {
	return &nameAllocator{used: map[string]bool{}, counter: map[string]int{}}
}

func (a *nameAllocator) allocate(base string) string {
	name := base
	for a.used[name] {
		a.counter[base]++
		name = fmt.Sprintf("%s_%d", base, a.counter[base])
	}
	a.used[name] = true
	return name
}

// detectStages orders the stages used by jobs canonically, then alphabetically
func detectStages(jobs []*domain.Job) []string {
	used := map[string]bool{}
	for _, j := range jobs {
		if j.Stage != "" && !isImplicitStage(j.Stage) {
			used[j.Stage] = true
		}
	}
	if len(used) == 0 {
		return slices.Clone(patterns.DefaultStages)
	}
	var stages []string
	for _, s := range patterns.CanonicalStageOrder {
		if used[s] {
			stages = append(stages, s)
			delete(used, s)
		}
	}
	rest := make([]string, 0, len(used))
	for s := range used {
		rest = append(rest, s)
	}
	slices.Sort(rest)
	return append(stages, rest...)
}

// orderJobs groups jobs by stage order keeping merge order inside a stage.
// .pre jobs come first and .post jobs last.
func orderJobs(jobs []*domain.Job, stages []string) []*domain.Job {
	position := func(stage string) int {
		switch stage {
		case stagePre:
			return -1
		case stagePost:
			return len(stages) + 1
		}
		if i := slices.Index(stages, stage); i >= 0 {
			return i
		}
		return len(stages)
	}
	ordered := slices.Clone(jobs)
	slices.SortStableFunc(ordered, func(a, b *domain.Job) int {
		return position(a.Stage) - position(b.Stage)
	})
	return ordered
}

func missingStageNotes(cfg *domain.PipelineConfig) []string {
	var notes []string
	for _, stage := range cfg.Stages {
		found := false
		for _, j := range cfg.Jobs {
			if j.Stage == stage {
				found = true
				break
			}
		}
		if !found {
			notes = append(notes, "NOTE: no template for stage: "+stage)
		}
	}
	return notes
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
