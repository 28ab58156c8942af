package validator

import (
	"fmt"
	"pipegen-cli/internal/ciyaml"
	"pipegen-cli/internal/graph"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity levels used by the dangerous command table
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
)

// DangerousPattern is one row of the line-by-line security scan
type DangerousPattern struct {
	Pattern     *regexp.Regexp
	Severity    string
	Description string
}

func pattern(expr, severity, description string) DangerousPattern {
	return DangerousPattern{Pattern: regexp.MustCompile(`(?i)` + expr), Severity: severity, Description: description}
}

// DangerousPatterns is matched case-insensitively against every line of the document
var DangerousPatterns = []DangerousPattern{
	pattern(`rm\s+-rf\s+[/]`, SeverityCritical, "Dangerous rm -rf / command"),
	pattern(`rm\s+-rf\s+\$`, SeverityHigh, "rm -rf with variable expansion"),
	pattern(`curl\s+.*\s+\|\s+bash`, SeverityHigh, "Piping curl to bash without verification"),
	pattern(`wget\s+.*\s+\|\s+bash`, SeverityHigh, "Piping wget to bash without verification"),
	pattern(`docker\s+run.*--privileged`, SeverityHigh, "Docker run with privileged mode"),
	pattern(`chmod\s+777`, SeverityMedium, "Overly permissive chmod"),
	pattern(`password\s*=\s*["']`, SeverityHigh, "Hardcoded password in script"),
	pattern(`api[_-]?key\s*=\s*["']`, SeverityHigh, "Hardcoded API key"),
	pattern(`secret\s*=\s*["']`, SeverityHigh, "Hardcoded secret"),
	pattern(`pip\s+install\s+.*http://`, SeverityMedium, "pip install from insecure HTTP source"),
	pattern(`npm\s+install\s+.*http://`, SeverityMedium, "npm install from insecure HTTP source"),
	pattern(`eval\s+\$\(`, SeverityMedium, "Use of eval with command substitution"),
	pattern(`eval\s+[^$]`, SeverityHigh, "Use of eval command"),
	pattern(`exec\s+\$`, SeverityHigh, "Dynamic exec with variable"),
}

// scanDangerousCommands reports every (line, pattern) match
func scanDangerousCommands(text string) []string {
	var issues []string
	for i, line := range strings.Split(text, "\n") {
		for _, p := range DangerousPatterns {
			if p.Pattern.MatchString(line) {
				issues = append(issues, fmt.Sprintf("Line %d: [%s] %s: %s", i+1, p.Severity, p.Description, strings.TrimSpace(line)))
			}
		}
	}
	return issues
}

var secretWords = []string{"password", "secret", "key", "token", "credential"}

// checkSecretVariables flags secret-looking variables holding a long literal
func checkSecretVariables(doc *document) []string {
	var issues []string
	check := func(node *yaml.Node, scope string) {
		for _, e := range ciyaml.Entries(node) {
			value := e.Value
			if value.Kind == yaml.MappingNode {
				value = ciyaml.Lookup(value, "value")
			}
			if value == nil || value.Kind != yaml.ScalarNode || value.Tag != "!!str" {
				continue
			}
			if !looksSecret(e.Key) || len(value.Value) <= 8 || strings.HasPrefix(value.Value, "$") {
				continue
			}
			issues = append(issues, fmt.Sprintf("Potential hardcoded secret in variable '%s'%s: consider using CI/CD variables", e.Key, scope))
		}
	}
	check(doc.variables, "")
	for _, job := range doc.jobs {
		check(ciyaml.Lookup(job.Value, "variables"), fmt.Sprintf(" of job '%s'", job.Key))
	}
	return issues
}

func looksSecret(name string) bool {
	lower := strings.ToLower(name)
	for _, w := range secretWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// checkStructure enforces the shape GitLab requires of jobs and stages
func checkStructure(doc *document) []string {
	var errs []string
	if len(doc.jobs) == 0 {
		errs = append(errs, "Pipeline defines no jobs")
	}

	var declared []string
	if doc.stages != nil {
		if doc.stages.Kind != yaml.SequenceNode {
			errs = append(errs, "'stages' must be a list")
		} else {
			for _, s := range doc.stages.Content {
				declared = append(declared, s.Value)
			}
		}
	}
	if doc.stages == nil {
		declared = []string{"build", "test", "deploy"}
	}

	for _, job := range doc.jobs {
		name, node := job.Key, job.Value
		if node.Kind != yaml.MappingNode {
			errs = append(errs, fmt.Sprintf("Job '%s' must be a mapping", name))
			continue
		}
		script := ciyaml.Lookup(node, "script")
		if script == nil && ciyaml.Lookup(node, "extends") == nil && ciyaml.Lookup(node, "trigger") == nil {
			errs = append(errs, fmt.Sprintf("Job '%s' must have 'script' or 'extends'", name))
		}
		if stage := ciyaml.Lookup(node, "stage"); stage != nil {
			switch {
			case stage.Kind != yaml.ScalarNode || stage.Tag != "!!str":
				errs = append(errs, fmt.Sprintf("Job '%s' stage must be a string", name))
			case !isBuiltinStage(stage.Value) && !slices.Contains(declared, stage.Value):
				errs = append(errs, fmt.Sprintf("Job '%s' uses undeclared stage '%s'", name, stage.Value))
			}
		}
		if script != nil && script.Kind != yaml.SequenceNode && !(script.Kind == yaml.ScalarNode && script.Tag == "!!str") {
			errs = append(errs, fmt.Sprintf("Job '%s' script must be a list or string", name))
		}
		if n := ciyaml.Lookup(node, "needs"); n != nil && n.Kind != yaml.SequenceNode {
			errs = append(errs, fmt.Sprintf("Job '%s' needs must be a list", name))
		}
	}
	return errs
}

func isBuiltinStage(stage string) bool {
	return stage == ".pre" || stage == ".post"
}

// checkCycles reports every job from which a needs cycle is reachable
func checkCycles(doc *document) []string {
	order := make([]string, 0, len(doc.jobs))
	g := make(graph.Graph, len(doc.jobs))
	for _, job := range doc.jobs {
		order = append(order, job.Key)
		for _, n := range needs(job.Value) {
			g[job.Key] = append(g[job.Key], n.Job)
		}
		if _, ok := g[job.Key]; !ok {
			g[job.Key] = nil
		}
	}

	var out []string
	for _, name := range graph.FindCycles(order, g, graph.ReportOnly) {
		out = append(out, fmt.Sprintf("Circular dependency detected involving job '%s'", name))
	}
	return out
}

// checkMissingNeeds reports needs naming jobs absent from the document.
// Optional needs may legitimately point at jobs excluded by rules.
func checkMissingNeeds(doc *document) []string {
	var out []string
	for _, job := range doc.jobs {
		for _, n := range needs(job.Value) {
			if n.Optional || doc.names[n.Job] {
				continue
			}
			out = append(out, fmt.Sprintf("Job '%s' depends on '%s' which does not exist", job.Key, n.Job))
		}
	}
	return out
}

// checkDuplicateJobs scans raw mapping keys, which a decoded map would collapse
func checkDuplicateJobs(root *yaml.Node) []string {
	var out []string
	seen := map[string]bool{}
	for _, e := range ciyaml.Entries(root) {
		if ciyaml.IsReserved(e.Key) {
			continue
		}
		if seen[e.Key] {
			out = append(out, fmt.Sprintf("Duplicate job name: '%s' (line %d)", e.Key, e.Line))
		}
		seen[e.Key] = true
	}
	return out
}

// checkStyle collects findings that never invalidate a pipeline
func checkStyle(doc *document) []string {
	var warnings []string

	used := map[string]bool{}
	var withoutStage []string
	for _, job := range doc.jobs {
		if job.Value.Kind != yaml.MappingNode {
			continue
		}
		if stage := ciyaml.Lookup(job.Value, "stage"); stage != nil {
			used[stage.Value] = true
		} else {
			withoutStage = append(withoutStage, job.Key)
		}
		if script := ciyaml.Lookup(job.Value, "script"); script != nil && isEmptyScript(script) {
			warnings = append(warnings, fmt.Sprintf("Job '%s' has empty script", job.Key))
		}
	}

	if doc.stages != nil && doc.stages.Kind == yaml.SequenceNode {
		var unused []string
		for _, s := range doc.stages.Content {
			if !used[s.Value] && !isBuiltinStage(s.Value) {
				unused = append(unused, s.Value)
			}
		}
		if len(unused) > 0 {
			warnings = append(warnings, "Defined stages not used: "+strings.Join(unused, ", "))
		}
	}
	if len(withoutStage) > 0 {
		warnings = append(warnings, "Jobs without stage defined: "+strings.Join(withoutStage, ", "))
	}
	return warnings
}

func isEmptyScript(script *yaml.Node) bool {
	switch script.Kind {
	case yaml.SequenceNode:
		return len(script.Content) == 0
	case yaml.ScalarNode:
		return strings.TrimSpace(script.Value) == ""
	}
	return false
}
