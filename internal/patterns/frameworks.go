package patterns

import "strings"

// PythonFrameworks maps PyPI package names to frameworks
var PythonFrameworks = map[string]string{
	"django":    "django",
	"flask":     "flask",
	"fastapi":   "fastapi",
	"sanic":     "sanic",
	"tornado":   "tornado",
	"bottle":    "bottle",
	"pyramid":   "pyramid",
	"cherrypy":  "cherrypy",
	"aiohttp":   "aiohttp",
	"starlette": "starlette",
	"streamlit": "streamlit",
	"celery":    "celery",
}

// NodeFrameworks maps npm package names to frameworks
var NodeFrameworks = map[string]string{
	"react":           "react",
	"react-dom":       "react",
	"vue":             "vue",
	"@angular/core":   "angular",
	"svelte":          "svelte",
	"next":            "nextjs",
	"nuxt":            "nuxt",
	"gatsby":          "gatsby",
	"express":         "express",
	"koa":             "koa",
	"@nestjs/core":    "nest",
	"fastify":         "fastify",
	"@hapi/hapi":      "hapi",
	"react-native":    "react-native",
	"@ionic/angular":  "ionic",
	"@ionic/react":    "ionic",
	"electron":        "electron",
	"@remix-run/node": "remix",
}

// GoFrameworks maps module path prefixes to frameworks
var GoFrameworks = map[string]string{
	"github.com/gin-gonic/gin":    "gin",
	"github.com/labstack/echo":    "echo",
	"github.com/gofiber/fiber":    "fiber",
	"github.com/go-chi/chi":       "chi",
	"github.com/gorilla/mux":      "gorilla",
	"github.com/beego/beego":      "beego",
	"github.com/revel/revel":      "revel",
	"google.golang.org/grpc":      "grpc",
	"github.com/spf13/cobra":      "cobra",
	"github.com/valyala/fasthttp": "fasthttp",
}

// JavaFrameworks maps artifact id fragments found in build files to frameworks
var JavaFrameworks = map[string]string{
	"spring-boot":              "spring",
	"org.springframework.boot": "spring",
	"spring-webmvc":            "spring",
	"quarkus":                  "quarkus",
	"micronaut":                "micronaut",
	"dropwizard":               "dropwizard",
	"vertx-core":               "vertx",
	"javalin":                  "javalin",
	"ktor-server":              "ktor",
}

// FrameworkForDependency resolves a dependency name for an ecosystem
func FrameworkForDependency(ecosystem, dep string) (string, bool) {
	dep = strings.TrimSpace(dep)
	switch ecosystem {
	case "python":
		fw, ok := PythonFrameworks[normalizePyPI(dep)]
		return fw, ok
	case "node":
		fw, ok := NodeFrameworks[dep]
		return fw, ok
	case "go":
		for prefix, fw := range GoFrameworks {
			if dep == prefix || strings.HasPrefix(dep, prefix+"/") {
				return fw, true
			}
		}
	case "java":
		for fragment, fw := range JavaFrameworks {
			if strings.Contains(dep, fragment) {
				return fw, true
			}
		}
	}
	return "", false
}

func normalizePyPI(name string) string {
	name = strings.ToLower(name)
	if i := strings.IndexAny(name, "[<>=!~; "); i >= 0 {
		name = name[:i]
	}
	return strings.ReplaceAll(name, "_", "-")
}

// FrameworkFileRules are signature files that identify a framework directly
var FrameworkFileRules = []Rule{
	{Matcher: ExactName{"manage.py"}, Category: "django", Value: "django", Apply: AddFramework},
	{Matcher: Glob("**/next.config.{js,mjs,ts}"), Category: "nextjs", Value: "nextjs", Apply: AddFramework},
	{Matcher: Glob("**/nuxt.config.{js,ts}"), Category: "nuxt", Value: "nuxt", Apply: AddFramework},
	{Matcher: ExactName{"angular.json"}, Category: "angular", Value: "angular", Apply: AddFramework},
	{Matcher: Glob("**/vue.config.js"), Category: "vue", Value: "vue", Apply: AddFramework},
	{Matcher: Glob("**/vite.config.{js,ts,mjs}"), Category: "vite", Value: "vite", Apply: AddFramework},
	{Matcher: Glob("**/svelte.config.js"), Category: "svelte", Value: "svelte", Apply: AddFramework},
	{Matcher: Glob("**/gatsby-config.{js,ts}"), Category: "gatsby", Value: "gatsby", Apply: AddFramework},
	{Matcher: Glob("**/nest-cli.json"), Category: "nest", Value: "nest", Apply: AddFramework},
	{Matcher: Glob("**/src/main/resources/application.{properties,yml,yaml}"), Category: "spring", Value: "spring", Apply: AddFramework},
	{Matcher: ExactName{"pubspec.yaml"}, Category: "flutter", Value: "flutter", Apply: AddFramework},
}

// FrameworkContentRules catch frameworks used without a manifest entry
var FrameworkContentRules = []Rule{
	{
		Matcher: ContentRegex{
			Name:       "fastapi-app",
			Extensions: []string{".py"},
			Pattern:    mustCompile(`(?m)^\s*(from\s+fastapi\s+import|import\s+fastapi)`),
		},
		Value: "fastapi",
		Apply: AddFramework,
	},
	{
		Matcher: ContentRegex{
			Name:       "flask-app",
			Extensions: []string{".py"},
			Pattern:    mustCompile(`(?m)^\s*(from\s+flask\s+import|import\s+flask)`),
		},
		Value: "flask",
		Apply: AddFramework,
	},
	{
		Matcher: ContentRegex{
			Name:       "spring-boot-application",
			Extensions: []string{".java", ".kt"},
			Pattern:    mustCompile(`@SpringBootApplication`),
		},
		Value: "spring",
		Apply: AddFramework,
	},
}

// Framework categories used by the classifier
var (
	FrontendFrameworks = []string{
		"react", "vue", "angular", "svelte", "nextjs", "nuxt", "gatsby", "remix", "vite",
	}
	BackendFrameworks = []string{
		"django", "flask", "fastapi", "sanic", "tornado", "bottle", "pyramid", "cherrypy",
		"aiohttp", "starlette", "express", "koa", "nest", "fastify", "hapi",
		"spring", "quarkus", "micronaut", "dropwizard", "vertx", "javalin", "ktor",
		"gin", "echo", "fiber", "chi", "gorilla", "beego", "revel", "fasthttp", "grpc",
	}
	MobileFrameworks = []string{
		"react-native", "flutter", "ionic", "xamarin",
	}
)
