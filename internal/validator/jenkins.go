package validator

import (
	"fmt"
	"pipegen-cli/internal/domain"
	"regexp"
	"strings"
)

var (
	jenkinsPipelineRe = regexp.MustCompile(`^pipeline\s*\{`)
	jenkinsStagesRe   = regexp.MustCompile(`\bstages\s*\{`)
)

// IsJenkinsfile reports whether text is a declarative Jenkins pipeline.
// Leading blank lines and // comments are skipped.
func IsJenkinsfile(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		return jenkinsPipelineRe.MatchString(trimmed)
	}
	return false
}

func (v *Validator) validateJenkins(text string, result *domain.ValidationResult) {
	result.Errors = append(result.Errors, checkBraces(text)...)
	if !jenkinsStagesRe.MatchString(text) {
		result.Errors = append(result.Errors, "Jenkinsfile has no stages block")
	}
	result.SecurityIssues = append(result.SecurityIssues, scanDangerousCommands(text)...)
}

// checkBraces verifies that braces outside quoted strings and // comments balance
func checkBraces(text string) []string {
	depth := 0
	var quote rune
	for lineNo, line := range strings.Split(text, "\n") {
		escaped := false
		prev := rune(0)
	chars:
		for _, r := range line {
			switch {
			case escaped:
				escaped = false
			case quote != 0:
				if r == '\\' {
					escaped = true
				} else if r == quote {
					quote = 0
				}
			case r == '/' && prev == '/':
				break chars
			case r == '\'' || r == '"':
				quote = r
			case r == '{':
				depth++
			case r == '}':
				depth--
				if depth < 0 {
					return []string{fmt.Sprintf("Unbalanced braces: unexpected '}' at line %d", lineNo+1)}
				}
			}
			prev = r
		}
		// groovy quotes used here never span lines
		quote = 0
	}
	if depth > 0 {
		return []string{fmt.Sprintf("Unbalanced braces: %d unclosed '{'", depth)}
	}
	return nil
}
