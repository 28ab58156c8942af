package patterns

import "regexp"

func mustCompile(expr string) *regexp.Regexp {
	return regexp.MustCompile(expr)
}

// Dockerfile name shapes, in canonical selection priority
var (
	DockerfileExact   = ExactName{"Dockerfile"}
	DockerfileVariant = Glob("**/Dockerfile.*")
	DockerfileSuffix  = Glob("**/*.dockerfile")
)

// IsDockerfile reports whether f is any kind of Dockerfile
func IsDockerfile(f File) bool {
	return DockerfileExact.Match(f, nil) || DockerfileVariant.Match(f, nil) || DockerfileSuffix.Match(f, nil)
}

var kubernetesManifest = mustCompile(`(?m)^apiVersion:\s*\S+[\s\S]*^kind:\s*(Deployment|StatefulSet|DaemonSet|Service|Ingress|ConfigMap|CronJob|Job|Pod)\b`)

// DevOpsRules detect containerization and infrastructure tooling
var DevOpsRules = []Rule{
	{Matcher: ExactName{".dockerignore"}, Category: "dockerignore", Apply: SetDocker},
	{Matcher: Glob("**/{docker-compose,compose}*.{yml,yaml}"), Category: "docker-compose", Apply: SetDocker},

	{Matcher: Glob("**/{k8s,kubernetes,manifests}/**/*.{yml,yaml}"), Category: "kubernetes", Apply: SetKubernetes},
	{Matcher: ExactName{"Chart.yaml"}, Category: "kubernetes", Apply: SetKubernetes},
	{Matcher: Glob("**/kustomization.{yml,yaml}"), Category: "kubernetes", Apply: SetKubernetes},
	{
		Matcher: ContentRegex{
			Name:       "kubernetes-workload-manifest",
			Extensions: []string{".yml", ".yaml"},
			Pattern:    kubernetesManifest,
		},
		Category: "kubernetes",
		Apply:    SetKubernetes,
	},

	{Matcher: ExtensionSet{".tf", ".tfvars"}, Category: "terraform", Apply: SetTerraform},
	{Matcher: ExactName{".terraform.lock.hcl"}, Category: "terraform", Apply: SetTerraform},

	{Matcher: Glob("**/{playbook,site}.{yml,yaml}"), Category: "ansible", Value: "ansible", Apply: AddBuildTool},
	{Matcher: ExactName{"ansible.cfg"}, Category: "ansible", Value: "ansible", Apply: AddBuildTool},
	{Matcher: Glob("**/Pulumi.{yml,yaml}"), Category: "pulumi", Value: "pulumi", Apply: AddBuildTool},
	{Matcher: ExactName{"Vagrantfile"}, Category: "vagrant", Value: "vagrant", Apply: AddBuildTool},
	{Matcher: ExactName{"Chart.yaml"}, Category: "helm", Value: "helm", Apply: AddBuildTool},
}

// TestRunnerRule is a file signal that a runner is configured. The runner is
// trusted only if one of its TestRunnerLanguages was detected.
type TestRunnerRule struct {
	Matcher Matcher
	Runner  string
}

// TestRunnerLanguages lists the languages each runner can test
var TestRunnerLanguages = map[string][]string{
	"pytest":     {"python"},
	"unittest":   {"python"},
	"jest":       {"javascript", "typescript"},
	"mocha":      {"javascript", "typescript"},
	"jasmine":    {"javascript", "typescript"},
	"karma":      {"javascript", "typescript"},
	"vitest":     {"javascript", "typescript"},
	"cypress":    {"javascript", "typescript"},
	"playwright": {"javascript", "typescript", "python"},
	"junit":      {"java"},
	"testng":     {"java"},
	"go test":    {"go"},
}

// TestRunnerFileRules are config files that identify a runner
var TestRunnerFileRules = []TestRunnerRule{
	{Matcher: ExactName{"pytest.ini", "conftest.py", "tox.ini"}, Runner: "pytest"},
	{Matcher: Glob("**/jest.config.{js,ts,mjs,cjs,json}"), Runner: "jest"},
	{Matcher: Glob("**/.mocharc.{js,json,yml,yaml}"), Runner: "mocha"},
	{Matcher: Glob("**/karma.conf.{js,ts}"), Runner: "karma"},
	{Matcher: Glob("**/vitest.config.{js,ts,mjs}"), Runner: "vitest"},
	{Matcher: Glob("**/cypress.config.{js,ts}"), Runner: "cypress"},
	{Matcher: ExactName{"cypress.json"}, Runner: "cypress"},
	{Matcher: Glob("**/playwright.config.{js,ts}"), Runner: "playwright"},
	{Matcher: Glob("**/spec/support/jasmine.json"), Runner: "jasmine"},
	{Matcher: Glob("**/src/test/java/**/*.java"), Runner: "junit"},
	{Matcher: ExactName{"testng.xml"}, Runner: "testng"},
	{Matcher: Glob("**/*_test.go"), Runner: "go test"},
}

// TestContentRule is a content heuristic. It is accepted only when the
// matching file's own language is among the detected languages.
type TestContentRule struct {
	Matcher ContentRegex
	Runner  string
}

// TestRunnerContentRules are consulted when no config file named a runner
var TestRunnerContentRules = []TestContentRule{
	{
		Matcher: ContentRegex{Name: "pytest-import", Extensions: []string{".py"},
			Pattern: mustCompile(`(?m)^\s*(import\s+pytest|from\s+pytest\s+import)|@pytest\.`)},
		Runner: "pytest",
	},
	{
		Matcher: ContentRegex{Name: "unittest-testcase", Extensions: []string{".py"},
			Pattern: mustCompile(`(?m)^\s*import\s+unittest|unittest\.TestCase`)},
		Runner: "unittest",
	},
	{
		Matcher: ContentRegex{Name: "jest-globals", Extensions: []string{".js", ".jsx", ".ts", ".tsx"},
			Pattern: mustCompile(`from\s+['"]@jest/globals['"]|jest\.(fn|mock|spyOn)\(`)},
		Runner: "jest",
	},
	{
		Matcher: ContentRegex{Name: "mocha-chai", Extensions: []string{".js", ".ts"},
			Pattern: mustCompile(`require\(['"](mocha|chai)['"]\)|from\s+['"](mocha|chai)['"]`)},
		Runner: "mocha",
	},
	{
		Matcher: ContentRegex{Name: "junit-annotations", Extensions: []string{".java", ".kt"},
			Pattern: mustCompile(`import\s+org\.junit|@Test\b`)},
		Runner: "junit",
	},
	{
		Matcher: ContentRegex{Name: "testng-import", Extensions: []string{".java"},
			Pattern: mustCompile(`import\s+org\.testng`)},
		Runner: "testng",
	},
	{
		Matcher: ContentRegex{Name: "go-testing", Extensions: []string{".go"},
			Pattern: mustCompile(`func\s+Test\w*\(\s*t\s+\*testing\.T\s*\)`)},
		Runner: "go test",
	},
}

// NodeTestRunners maps package.json dev dependencies to runners
var NodeTestRunners = map[string]string{
	"jest":             "jest",
	"mocha":            "mocha",
	"jasmine":          "jasmine",
	"karma":            "karma",
	"vitest":           "vitest",
	"cypress":          "cypress",
	"@playwright/test": "playwright",
}

// PythonTestRunners maps PyPI packages to runners
var PythonTestRunners = map[string]string{
	"pytest": "pytest",
}
