package composer

import (
	"fmt"
	"pipegen-cli/internal/domain"
	"slices"
	"strings"
)

const jenkinsIndent = "    "

// jenkinsWriter accumulates indented Jenkinsfile lines
type jenkinsWriter struct {
	b     strings.Builder
	depth int
}

func (w *jenkinsWriter) line(format string, args ...any) {
	w.b.WriteString(strings.Repeat(jenkinsIndent, w.depth))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
}

func (w *jenkinsWriter) open(format string, args ...any) {
	w.line(format+" {", args...)
	w.depth++
}

func (w *jenkinsWriter) close() {
	w.depth--
	w.line("}")
}

// RenderJenkins writes cfg as a declarative Jenkinsfile. Each stage becomes a
// stage block; several jobs in one stage run in parallel. Triggers become a
// cron trigger and per-stage when conditions.
func RenderJenkins(cfg *domain.PipelineConfig, triggers *domain.Triggers) string {
	w := &jenkinsWriter{}
	for _, note := range cfg.Notes {
		w.line("// %s", note)
	}

	w.open("pipeline")
	w.line("agent any")

	if triggers != nil && triggers.Schedule {
		w.open("triggers")
		w.line("cron('H 2 * * *')")
		w.close()
	}

	if len(cfg.Variables) > 0 {
		w.open("environment")
		for _, k := range sortedKeys(cfg.Variables) {
			w.line("%s = %s", k, groovyString(cfg.Variables[k]))
		}
		w.close()
	}

	conditions := jenkinsConditions(triggers)

	w.open("stages")
	for _, stage := range jenkinsStages(cfg) {
		jobs := jobsInStage(cfg.Jobs, stage)
		if len(jobs) == 0 {
			continue
		}
		w.open("stage(%s)", groovyString(strings.TrimPrefix(stage, ".")))
		writeWhen(w, conditions)
		if len(jobs) == 1 {
			writeJobBody(w, jobs[0])
		} else {
			w.open("parallel")
			for _, job := range jobs {
				w.open("stage(%s)", groovyString(job.Name))
				writeJobBody(w, job)
				w.close()
			}
			w.close()
		}
		w.close()
	}
	w.close()

	w.close()
	return w.b.String()
}

// jenkinsStages lists .pre first and .post last around the declared stages
func jenkinsStages(cfg *domain.PipelineConfig) []string {
	stages := make([]string, 0, len(cfg.Stages)+2)
	stages = append(stages, stagePre)
	stages = append(stages, cfg.Stages...)
	return append(stages, stagePost)
}

func jobsInStage(jobs []*domain.Job, stage string) []*domain.Job {
	var out []*domain.Job
	for _, j := range jobs {
		if j.Stage == stage {
			out = append(out, j)
		}
	}
	return out
}

func writeJobBody(w *jenkinsWriter, job *domain.Job) {
	if job.Image != "" {
		w.open("agent")
		w.open("docker")
		w.line("image %s", groovyString(job.Image))
		w.line("reuseNode true")
		w.close()
		w.close()
	}
	if len(job.Variables) > 0 {
		w.open("environment")
		for _, k := range sortedKeys(job.Variables) {
			w.line("%s = %s", k, groovyString(job.Variables[k]))
		}
		w.close()
	}
	if job.Timeout != "" {
		w.open("options")
		w.line("timeout(time: %d, unit: 'MINUTES')", timeoutMinutes(job.Timeout))
		w.close()
	}

	w.open("steps")
	if job.When == "manual" {
		w.line("input message: %s", groovyString("Run "+job.Name+"?"))
	}
	steps := slices.Concat(job.BeforeScript, job.Script)
	for _, cmd := range steps {
		if job.AllowFailure {
			w.line("catchError(buildResult: 'SUCCESS', stageResult: 'UNSTABLE') { sh %s }", groovyString(cmd))
			continue
		}
		w.line("sh %s", groovyString(cmd))
	}
	if len(steps) == 0 {
		w.line("echo %s", groovyString("no steps for "+job.Name))
	}
	w.close()

	if len(job.AfterScript) > 0 || job.When == "always" {
		w.open("post")
		w.open("always")
		for _, cmd := range job.AfterScript {
			w.line("sh %s", groovyString(cmd))
		}
		if len(job.AfterScript) == 0 {
			w.line("echo %s", groovyString(job.Name+" finished"))
		}
		w.close()
		w.close()
	}
}

// jenkinsConditions maps workflow triggers to declarative when clauses
func jenkinsConditions(t *domain.Triggers) []string {
	if t == nil {
		return nil
	}
	var conds []string
	for _, branch := range t.OnPush {
		conds = append(conds, fmt.Sprintf("branch %s", groovyString(branch)))
	}
	if t.OnMergeRequest {
		conds = append(conds, "changeRequest()")
	}
	if t.OnTags != "" {
		conds = append(conds, fmt.Sprintf("tag pattern: %s, comparator: 'REGEXP'", groovyString(t.OnTags)))
	}
	if t.Schedule {
		conds = append(conds, "triggeredBy 'TimerTrigger'")
	}
	if t.Manual {
		conds = append(conds, "triggeredBy cause: 'UserIdCause'")
	}
	return conds
}

func writeWhen(w *jenkinsWriter, conds []string) {
	if len(conds) == 0 {
		return
	}
	w.open("when")
	if len(conds) == 1 {
		w.line("%s", conds[0])
	} else {
		w.open("anyOf")
		for _, c := range conds {
			w.line("%s", c)
		}
		w.close()
	}
	w.close()
}

// groovyString quotes s as a single-quoted Groovy literal, which performs
// no interpolation
func groovyString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + r.Replace(s) + "'"
}

// timeoutMinutes converts GitLab durations like "1h 30m" or "45m" to minutes
func timeoutMinutes(timeout string) int {
	total := 0
	for _, field := range strings.Fields(timeout) {
		var n int
		var unit string
		if _, err := fmt.Sscanf(field, "%d%s", &n, &unit); err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(unit, "h"):
			total += n * 60
		case strings.HasPrefix(unit, "m"):
			total += n
		case strings.HasPrefix(unit, "s"):
			total += (n + 59) / 60
		}
	}
	if total == 0 {
		return 60
	}
	return total
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
