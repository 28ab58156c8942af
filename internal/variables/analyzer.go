// Package variables lists the CI/CD variables a generated pipeline expects
// to be configured in project settings.
package variables

import (
	"pipegen-cli/internal/ciyaml"
	"pipegen-cli/internal/domain"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// tokenRe matches ${NAME} and ${NAME:-default}
var tokenRe = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)(?::-([^}]*))?\}`)

// Analyzer extracts unresolved variable tokens from pipeline text
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new variable analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

type token struct {
	name       string
	hasDefault bool
	inline     string
}

// Analyze returns one entry per variable token, required ones first, then
// by name. Automatic GitLab variables and variables the document defines
// itself are left out.
func (a *Analyzer) Analyze(text string) []domain.RequiredVariable {
	tokens := scanTokens(text)
	blocks, defined := jobBlocks(text)

	out := make([]domain.RequiredVariable, 0, len(tokens))
	for _, tok := range tokens {
		if AutomaticVariables[tok.name] || defined[tok.name] {
			continue
		}
		rv := domain.RequiredVariable{
			Name:     tok.name,
			JobUsage: usage(blocks, tok.name),
		}
		if known, ok := KnownVariables[tok.name]; ok {
			rv.Description = known.Description
			rv.Required = known.Required
			rv.DefaultValue = known.DefaultValue
			rv.Example = known.Example
		} else {
			rv.Description = "Variable " + tok.name
			rv.Required = !tok.hasDefault
			rv.DefaultValue = tok.inline
		}
		out = append(out, rv)
	}

	slices.SortFunc(out, func(x, y domain.RequiredVariable) int {
		if x.Required != y.Required {
			if x.Required {
				return -1
			}
			return 1
		}
		return strings.Compare(x.Name, y.Name)
	})

	a.logger.Debug("Required variables analyzed", zap.Int("count", len(out)))
	return out
}

// scanTokens lists distinct tokens in order of first appearance; the first
// inline default seen for a name wins
func scanTokens(text string) []token {
	var tokens []token
	index := map[string]int{}
	for _, m := range tokenRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		hasDefault := m[4] >= 0
		inline := ""
		if hasDefault {
			inline = text[m[4]:m[5]]
		}
		if i, ok := index[name]; ok {
			if !tokens[i].hasDefault && hasDefault {
				tokens[i].hasDefault, tokens[i].inline = true, inline
			}
			continue
		}
		index[name] = len(tokens)
		tokens = append(tokens, token{name: name, hasDefault: hasDefault, inline: inline})
	}
	return tokens
}

type block struct {
	job  string
	text string
}

// jobBlocks splits a GitLab document into the source text of each job and
// collects names given a value in any variables section. Text that is not
// YAML (a Jenkinsfile) yields no blocks.
func jobBlocks(text string) ([]block, map[string]bool) {
	defined := map[string]bool{}
	root, err := ciyaml.Parse([]byte(text))
	if err != nil {
		return nil, defined
	}

	collect := func(node *yaml.Node) {
		var vars ciyaml.Variables
		if node == nil || node.Decode(&vars) != nil {
			return
		}
		for name, value := range vars {
			if value != "" {
				defined[name] = true
			}
		}
	}
	collect(ciyaml.Lookup(root, "variables"))

	lines := strings.Split(text, "\n")
	entries := ciyaml.Entries(root)
	var blocks []block
	for i, e := range entries {
		if !ciyaml.IsJobKey(e.Key) {
			continue
		}
		if e.Value.Kind == yaml.MappingNode {
			collect(ciyaml.Lookup(e.Value, "variables"))
		}
		end := len(lines)
		if i+1 < len(entries) {
			end = entries[i+1].Line - 1
		}
		start := max(e.Line-1, 0)
		if end < start {
			end = start
		}
		blocks = append(blocks, block{job: e.Key, text: strings.Join(lines[start:min(end, len(lines))], "\n")})
	}
	return blocks, defined
}

func usage(blocks []block, name string) []string {
	jobs := []string{}
	braced := "${" + name
	bare := regexp.MustCompile(`\$` + regexp.QuoteMeta(name) + `\b`)
	for _, b := range blocks {
		if strings.Contains(b.text, braced+"}") || strings.Contains(b.text, braced+":") || bare.MatchString(b.text) {
			jobs = append(jobs, b.job)
		}
	}
	return jobs
}
