package patterns

// DependencyDatabases maps driver and client packages of every ecosystem to databases
var DependencyDatabases = map[string]string{
	"psycopg2":                               "postgresql",
	"psycopg2-binary":                        "postgresql",
	"psycopg":                                "postgresql",
	"asyncpg":                                "postgresql",
	"pg":                                     "postgresql",
	"postgres":                               "postgresql",
	"github.com/lib/pq":                      "postgresql",
	"github.com/jackc/pgx/v5":                "postgresql",
	"github.com/jackc/pgx/v4":                "postgresql",
	"org.postgresql:postgresql":              "postgresql",
	"pymysql":                                "mysql",
	"mysqlclient":                            "mysql",
	"mysql":                                  "mysql",
	"mysql2":                                 "mysql",
	"github.com/go-sql-driver/mysql":         "mysql",
	"mysql:mysql-connector-java":             "mysql",
	"pymongo":                                "mongodb",
	"motor":                                  "mongodb",
	"mongoose":                               "mongodb",
	"mongodb":                                "mongodb",
	"go.mongodb.org/mongo-driver":            "mongodb",
	"redis":                                  "redis",
	"ioredis":                                "redis",
	"github.com/redis/go-redis/v9":           "redis",
	"github.com/go-redis/redis/v8":           "redis",
	"sqlite3":                                "sqlite",
	"better-sqlite3":                         "sqlite",
	"github.com/mattn/go-sqlite3":            "sqlite",
	"cassandra-driver":                       "cassandra",
	"github.com/gocql/gocql":                 "cassandra",
	"elasticsearch":                          "elasticsearch",
	"@elastic/elasticsearch":                 "elasticsearch",
	"github.com/elastic/go-elasticsearch/v8": "elasticsearch",
	"cx-oracle":                              "oracle",
	"oracledb":                               "oracle",
	"pyodbc":                                 "sqlserver",
	"mssql":                                  "sqlserver",
	"tedious":                                "sqlserver",
	"github.com/microsoft/go-mssqldb":        "sqlserver",
}

var sourceExtensions = []string{".py", ".js", ".ts", ".java", ".kt", ".go", ".yml", ".yaml", ".env", ".properties", ".toml", ".json"}

// DatabaseContentRules look for connection strings and client usage
var DatabaseContentRules = []Rule{
	{
		Matcher: ContentRegex{Name: "postgres-url", Extensions: sourceExtensions,
			Pattern: mustCompile(`postgres(ql)?://|jdbc:postgresql:|image:\s*postgres`)},
		Category: "database_files", Value: "postgresql", Apply: AddDatabase,
	},
	{
		Matcher: ContentRegex{Name: "mysql-url", Extensions: sourceExtensions,
			Pattern: mustCompile(`mysql://|jdbc:mysql:|image:\s*(mysql|mariadb)`)},
		Category: "database_files", Value: "mysql", Apply: AddDatabase,
	},
	{
		Matcher: ContentRegex{Name: "mongodb-url", Extensions: sourceExtensions,
			Pattern: mustCompile(`mongodb(\+srv)?://|image:\s*mongo`)},
		Category: "database_files", Value: "mongodb", Apply: AddDatabase,
	},
	{
		Matcher: ContentRegex{Name: "redis-url", Extensions: sourceExtensions,
			Pattern: mustCompile(`redis://|image:\s*redis`)},
		Category: "database_files", Value: "redis", Apply: AddDatabase,
	},
	{
		Matcher: ContentRegex{Name: "sqlite-usage", Extensions: sourceExtensions,
			Pattern: mustCompile(`sqlite3?\.connect\(|sqlite:///|jdbc:sqlite:`)},
		Category: "database_files", Value: "sqlite", Apply: AddDatabase,
	},
	{
		Matcher: ContentRegex{Name: "elasticsearch-image", Extensions: []string{".yml", ".yaml"},
			Pattern: mustCompile(`image:\s*\S*elasticsearch`)},
		Category: "database_files", Value: "elasticsearch", Apply: AddDatabase,
	},
	{
		Matcher: ContentRegex{Name: "sqlserver-url", Extensions: sourceExtensions,
			Pattern: mustCompile(`jdbc:sqlserver:|sqlserver://|image:\s*mcr\.microsoft\.com/mssql`)},
		Category: "database_files", Value: "sqlserver", Apply: AddDatabase,
	},
}

// DatabaseFileRules mark SQL artefacts as database evidence without naming an engine
var DatabaseFileRules = []Rule{
	{Matcher: ExtensionSet{".sql"}, Category: "sql_files"},
	{Matcher: ExactName{"alembic.ini"}, Category: "migrations"},
	{Matcher: Glob("**/migrations/**"), Category: "migrations"},
	{Matcher: ExtensionSet{".sqlite", ".sqlite3", ".db"}, Category: "database_files", Value: "sqlite", Apply: AddDatabase},
}

// CloudRules detect cloud provider usage from files and SDK references
var CloudRules = []Rule{
	{Matcher: Glob("**/{serverless,template,samconfig}.{yml,yaml,toml}"), Category: "aws", Value: "aws", Apply: AddCloud},
	{Matcher: ExactName{"buildspec.yml", "appspec.yml"}, Category: "aws", Value: "aws", Apply: AddCloud},
	{Matcher: ExactName{"azure.yaml", "host.json"}, Category: "azure", Value: "azure", Apply: AddCloud},
	{Matcher: ExactName{"app.yaml", "cloudbuild.yaml", "cloudbuild.yml"}, Category: "gcp", Value: "gcp", Apply: AddCloud},
	{Matcher: ExactName{"Procfile", "app.json"}, Category: "heroku", Value: "heroku", Apply: AddCloud},
	{Matcher: ExactName{"do-app.yaml"}, Category: "digitalocean", Value: "digitalocean", Apply: AddCloud},
	{
		Matcher: ContentRegex{Name: "aws-sdk", Extensions: sourceExtensions,
			Pattern: mustCompile(`\bimport\s+boto3|aws-sdk|@aws-sdk/|github\.com/aws/aws-sdk-go|provider\s+"aws"`)},
		Value: "aws", Apply: AddCloud,
	},
	{
		Matcher: ContentRegex{Name: "azure-sdk", Extensions: sourceExtensions,
			Pattern: mustCompile(`from\s+azure\.|@azure/|github\.com/Azure/azure-sdk-for-go|provider\s+"azurerm"`)},
		Value: "azure", Apply: AddCloud,
	},
	{
		Matcher: ContentRegex{Name: "gcp-sdk", Extensions: sourceExtensions,
			Pattern: mustCompile(`from\s+google\.cloud|@google-cloud/|cloud\.google\.com/go|provider\s+"google"`)},
		Value: "gcp", Apply: AddCloud,
	},
	{
		Matcher: ContentRegex{Name: "terraform-aws-provider", Extensions: []string{".tf"},
			Pattern: mustCompile(`provider\s+"aws"`)},
		Value: "aws", Apply: AddCloud,
	},
}

// BuildToolRules detect build tooling
var BuildToolRules = []Rule{
	{Matcher: ExactName{"Makefile", "makefile", "GNUmakefile"}, Category: "make", Value: "make", Apply: AddBuildTool},
	{Matcher: ExactName{"CMakeLists.txt"}, Category: "cmake", Value: "cmake", Apply: AddBuildTool},
	{Matcher: ExactName{"pom.xml"}, Category: "maven", Value: "maven", Apply: AddBuildTool},
	{Matcher: ExactName{"build.gradle", "build.gradle.kts", "gradlew"}, Category: "gradle", Value: "gradle", Apply: AddBuildTool},
	{Matcher: Glob("**/webpack.config.{js,ts}"), Category: "webpack", Value: "webpack", Apply: AddBuildTool},
	{Matcher: Glob("**/vite.config.{js,ts,mjs}"), Category: "vite", Value: "vite", Apply: AddBuildTool},
	{Matcher: Glob("**/rollup.config.{js,ts,mjs}"), Category: "rollup", Value: "rollup", Apply: AddBuildTool},
	{Matcher: Glob("**/{.babelrc,babel.config.js,babel.config.json}"), Category: "babel", Value: "babel", Apply: AddBuildTool},
	{Matcher: Glob("**/gulpfile.{js,ts}"), Category: "gulp", Value: "gulp", Apply: AddBuildTool},
	{Matcher: ExactName{"Gruntfile.js"}, Category: "grunt", Value: "grunt", Apply: AddBuildTool},
	{Matcher: ExactName{"Taskfile.yml", "Taskfile.yaml"}, Category: "task", Value: "task", Apply: AddBuildTool},
	{Matcher: ExactName{".goreleaser.yml", ".goreleaser.yaml"}, Category: "goreleaser", Value: "goreleaser", Apply: AddBuildTool},
}

// CICDRules detect existing CI/CD systems
var CICDRules = []Rule{
	{Matcher: Glob(".github/workflows/*.{yml,yaml}"), Category: "github-actions", Value: "github-actions", Apply: AddCICD},
	{Matcher: ExactName{".gitlab-ci.yml"}, Category: "gitlab-ci", Value: "gitlab-ci", Apply: AddCICD},
	{Matcher: ExactName{"Jenkinsfile"}, Category: "jenkins", Value: "jenkins", Apply: AddCICD},
	{Matcher: ExactName{"bitbucket-pipelines.yml"}, Category: "bitbucket", Value: "bitbucket", Apply: AddCICD},
	{Matcher: ExactName{"azure-pipelines.yml"}, Category: "azure-pipelines", Value: "azure-pipelines", Apply: AddCICD},
	{Matcher: ExactName{".circleci/config.yml"}, Category: "circleci", Value: "circleci", Apply: AddCICD},
	{Matcher: ExactName{".travis.yml"}, Category: "travis", Value: "travis", Apply: AddCICD},
	{Matcher: ExactName{".drone.yml"}, Category: "drone", Value: "drone", Apply: AddCICD},
}

// HintRules produce free-text observations for the report
var HintRules = []Rule{
	{Matcher: ExactName{".gitlab-ci.yml"}, Value: "existing GitLab CI configuration found", Apply: AddHint},
	{Matcher: ExactName{"Jenkinsfile"}, Value: "existing Jenkinsfile found", Apply: AddHint},
	{Matcher: Glob("**/{nginx,apache,httpd}*.conf"), Category: "web_server", Value: "web server configuration present", Apply: AddHint},
	{Matcher: Glob("**/migrations/**"), Value: "database migrations present", Apply: AddHint},
	{Matcher: ExactName{".env.example", ".env.sample", ".env.template"}, Category: "env_templates", Value: "environment template present; CI variables may be required", Apply: AddHint},
	{Matcher: ExactName{".flake8", ".pylintrc", "ruff.toml", ".golangci.yml", ".golangci.yaml", "checkstyle.xml"}, Category: "linters", Value: "linter configuration present", Apply: AddHint},
	{Matcher: Glob("**/{.eslintrc,.eslintrc.*,eslint.config.*}"), Category: "linters", Value: "linter configuration present", Apply: AddHint},
	{Matcher: Glob("**/{.prettierrc,.prettierrc.*,.editorconfig}"), Category: "formatters", Value: "formatter configuration present", Apply: AddHint},
	{Matcher: Glob("**/{prometheus,alertmanager}.{yml,yaml}"), Category: "monitoring", Value: "monitoring configuration present", Apply: AddHint},
	{Matcher: Glob("**/{README,readme}.md"), Category: "docs"},
	{Matcher: ExactName{"mkdocs.yml"}, Category: "docs", Value: "documentation site configured", Apply: AddHint},
}
