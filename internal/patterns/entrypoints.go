package patterns

import "regexp"

// EntryPattern is a named content heuristic for an entry point. Framework
// "main" marks a plain program entry rather than a framework app.
type EntryPattern struct {
	Name       string
	Pattern    *regexp.Regexp
	Framework  string
	Confidence float64
}

// EntryPatterns are the per-language content heuristics
var EntryPatterns = map[string][]EntryPattern{
	"python": {
		{Name: "python-dunder-main", Pattern: mustCompile(`if\s+__name__\s*==\s*['"]__main__['"]`), Framework: "main", Confidence: 0.9},
		{Name: "flask-app", Pattern: mustCompile(`\w+\s*=\s*Flask\(__name__`), Framework: "flask", Confidence: 0.8},
		{Name: "fastapi-app", Pattern: mustCompile(`\w+\s*=\s*FastAPI\(`), Framework: "fastapi", Confidence: 0.8},
		{Name: "uvicorn-run", Pattern: mustCompile(`uvicorn\.run\(`), Framework: "fastapi", Confidence: 0.9},
		{Name: "django-wsgi", Pattern: mustCompile(`get_wsgi_application\(\)`), Framework: "django", Confidence: 0.8},
		{Name: "django-manage", Pattern: mustCompile(`execute_from_command_line\(`), Framework: "django", Confidence: 0.9},
	},
	"javascript": {
		{Name: "express-listen", Pattern: mustCompile(`\w+\.listen\(\s*(process\.env\.PORT|\d+|port|PORT)`), Framework: "express", Confidence: 0.8},
		{Name: "express-app", Pattern: mustCompile(`=\s*express\(\)`), Framework: "express", Confidence: 0.7},
		{Name: "node-http-server", Pattern: mustCompile(`http\.createServer\(`), Framework: "node", Confidence: 0.7},
		{Name: "nest-bootstrap", Pattern: mustCompile(`NestFactory\.create\(`), Framework: "nest", Confidence: 0.9},
		{Name: "react-render", Pattern: mustCompile(`ReactDOM\.(render|createRoot)\(`), Framework: "react", Confidence: 0.8},
		{Name: "vue-create-app", Pattern: mustCompile(`createApp\(`), Framework: "vue", Confidence: 0.7},
	},
	"java": {
		{Name: "java-static-main", Pattern: mustCompile(`public\s+static\s+void\s+main\s*\(\s*String\s*\[\]\s*\w+\s*\)`), Framework: "main", Confidence: 1.0},
		{Name: "spring-boot-run", Pattern: mustCompile(`SpringApplication\.run\(`), Framework: "spring", Confidence: 0.9},
	},
	"go": {
		{Name: "go-main-func", Pattern: mustCompile(`(?m)^func\s+main\(\)`), Framework: "main", Confidence: 1.0},
		{Name: "go-http-listen", Pattern: mustCompile(`http\.ListenAndServe\(`), Framework: "net/http", Confidence: 0.7},
	},
}

// EntryPatternLanguage maps a source extension to the pattern table to use
var EntryPatternLanguage = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".jsx":  "javascript",
	".ts":   "javascript",
	".tsx":  "javascript",
	".java": "java",
	".kt":   "java",
	".go":   "go",
}

// StandardEntryFiles are conventional entry files per language
var StandardEntryFiles = map[string][]string{
	"python":     {"main.py", "app.py", "application.py", "run.py", "server.py", "wsgi.py", "asgi.py", "manage.py", "__main__.py"},
	"javascript": {"index.js", "server.js", "app.js", "main.js", "src/index.js", "src/main.js", "src/server.js"},
	"typescript": {"index.ts", "server.ts", "app.ts", "main.ts", "src/index.ts", "src/main.ts", "src/server.ts"},
	"java":       {"src/main/java/Main.java", "src/main/java/Application.java", "Main.java"},
	"go":         {"main.go", "cmd/**/main.go"},
}

// Standard entry confidence and Dockerfile command confidence
const (
	StandardEntryConfidence = 0.7
	DockerEntryConfidence   = 0.9
	ComposeEntryConfidence  = 0.7
)

// DockerCommandPattern extracts the script run by a Dockerfile CMD/ENTRYPOINT
var DockerCommandPattern = mustCompile(`(node|python3?|java|php|ruby|go\s+run)\s+(?:-jar\s+)?([\w./-]+\.\w+)`)

// DockerCommandLanguages maps the interpreter of a Dockerfile command to a language
var DockerCommandLanguages = map[string]string{
	"node":    "javascript",
	"python":  "python",
	"python3": "python",
	"java":    "java",
	"go run":  "go",
	"php":     "php",
	"ruby":    "ruby",
}

// EntryTypePriority is the preference order for the main entry point
var EntryTypePriority = []string{"main", "app", "docker", "script"}
