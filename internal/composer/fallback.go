package composer

import (
	"fmt"
	"pipegen-cli/internal/domain"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// ErrorJobName names the only job of the error pipeline
const ErrorJobName = "error_job"

// minimalPipeline synthesizes a build job, plus a test job when a runner is
// known, from hardcoded per-language defaults
func minimalPipeline(analysis *domain.StackAnalysis, settings *domain.UserSettings) *domain.PipelineConfig {
	lang := strings.ToLower(analysis.PrimaryLanguage())
	pm := nodeManager(analysis.PackageManager)

	build := &domain.Job{Name: "build", Stage: pickStage("build", settings.Stages), Language: lang}
	switch lang {
	case "python":
		build.Image = defaultImage("python", settings)
		build.Script = []string{"pip install -r requirements.txt"}
	case "javascript", "typescript":
		build.Image = defaultImage("node", settings)
		build.Script = []string{pm + " install", pm + " run build"}
	default:
		build.Image = defaultImageOr(settings, "alpine:latest")
		build.Script = []string{`echo "Build complete"`}
	}
	jobs := []*domain.Job{build}

	if len(analysis.TestRunners) > 0 && (len(settings.Stages) == 0 || slices.Contains(settings.Stages, "test")) {
		if script := minimalTestScript(lang, analysis.TestRunners[0], pm); script != "" {
			jobs = append(jobs, &domain.Job{
				Name:     "test",
				Stage:    "test",
				Image:    build.Image,
				Script:   []string{script},
				Needs:    []domain.Need{{Job: build.Name}},
				Language: lang,
			})
		}
	}

	stages := slices.Clone(settings.Stages)
	if len(stages) == 0 {
		for _, j := range jobs {
			if !slices.Contains(stages, j.Stage) {
				stages = append(stages, j.Stage)
			}
		}
	}

	// needs must point backwards in stage order
	if len(jobs) > 1 && slices.Index(stages, "test") < slices.Index(stages, build.Stage) {
		jobs[1].Needs = nil
	}
	return &domain.PipelineConfig{Stages: stages, Jobs: jobs}
}

// pickStage keeps preferred when allowed, else the first requested stage
func pickStage(preferred string, requested []string) string {
	if len(requested) == 0 || slices.Contains(requested, preferred) {
		return preferred
	}
	return requested[0]
}

func minimalTestScript(lang, runner, pm string) string {
	switch strings.ToLower(runner) {
	case "pytest":
		return "pytest"
	case "unittest":
		return "python -m unittest"
	case "jest", "mocha", "vitest", "jasmine", "karma":
		return pm + " test"
	case "go test", "go":
		return "go test ./..."
	case "junit", "testng":
		return "mvn -B test"
	}
	switch lang {
	case "python":
		return "python -m unittest"
	case "javascript", "typescript":
		return pm + " test"
	}
	return ""
}

func nodeManager(pm string) string {
	switch pm {
	case "yarn", "pnpm", "npm":
		return pm
	default:
		return "npm"
	}
}

func defaultImageOr(settings *domain.UserSettings, fallback string) string {
	if img := settings.Images["default"]; img != "" {
		return img
	}
	return fallback
}

// ErrorPipeline renders the single-job pipeline that reports a generation
// failure and always fails
func (c *Composer) ErrorPipeline(message, platform string) *domain.Composition {
	if platform == "" {
		platform = domain.PlatformGitLab
	}
	cfg := ErrorConfig(message)
	text, err := Render(cfg, platform, nil)
	if err != nil {
		c.logger.Error("Failed to render error pipeline", zap.Error(err))
		platform = domain.PlatformGitLab
		text, _ = RenderGitLab(cfg)
	}
	return &domain.Composition{
		Config:   cfg,
		Text:     text,
		Platform: platform,
		Warnings: []string{"Generation error: " + message},
	}
}

// ErrorConfig builds the error pipeline structure
func ErrorConfig(message string) *domain.PipelineConfig {
	clean := strings.NewReplacer(`"`, `'`, "\n", " ", "\r", " ", "`", "'", "$", "").Replace(message)
	return &domain.PipelineConfig{
		Stages: []string{"error"},
		Jobs: []*domain.Job{{
			Name:  ErrorJobName,
			Stage: "error",
			Image: "alpine:latest",
			Script: []string{
				fmt.Sprintf(`echo "Pipeline generation failed: %s"`, clean),
				"exit 1",
			},
		}},
	}
}
