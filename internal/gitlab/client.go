package gitlab

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"pipegen-cli/internal/domain"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
)

// ErrLintNotConfigured is returned by LintPipeline when no lint project is set
var ErrLintNotConfigured = errors.New("lint project is not configured")

// Client handles GitLab API operations
type Client struct {
	baseURL     string
	token       string
	lintProject string
	client      *gitlab.Client
	logger      *zap.Logger
}

// NewClient creates a new GitLab client. lintProject is the project path or
// ID whose CI settings are used to lint generated pipelines; it may be empty.
func NewClient(baseURL, token, lintProject string, logger *zap.Logger) (*Client, error) {
	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &Client{
		baseURL:     baseURL,
		token:       token,
		lintProject: lintProject,
		client:      client,
		logger:      logger,
	}, nil
}

// CheckPermissions verifies if the token has sufficient permissions
func (c *Client) CheckPermissions(ctx context.Context) error {
	c.logger.Debug("Starting CheckPermissions")

	user, _, err := c.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		c.logger.Error("Failed to verify token permissions", zap.Error(err))
		return fmt.Errorf("failed to verify token permissions: %w", err)
	}

	c.logger.Debug("Successfully verified token permissions",
		zap.String("username", user.Username),
		zap.Int("user_id", user.ID))

	return nil
}

// LintPipeline submits content to the CI lint endpoint of the lint project
func (c *Client) LintPipeline(ctx context.Context, content string) (*domain.LintResult, error) {
	if c.lintProject == "" {
		return nil, ErrLintNotConfigured
	}
	c.logger.Debug("Linting pipeline",
		zap.String("lint_project", c.lintProject),
		zap.Int("content_size_bytes", len(content)))

	res, _, err := c.client.Validate.ProjectNamespaceLint(c.lintProject, &gitlab.ProjectNamespaceLintOptions{
		Content: gitlab.Ptr(content),
	}, gitlab.WithContext(ctx))
	if err != nil {
		c.logger.Warn("CI lint request failed",
			zap.String("lint_project", c.lintProject),
			zap.Error(err))
		return nil, fmt.Errorf("failed to lint pipeline in project %s: %w", c.lintProject, err)
	}

	c.logger.Debug("Pipeline linted",
		zap.Bool("valid", res.Valid),
		zap.Int("errors", len(res.Errors)),
		zap.Int("warnings", len(res.Warnings)))

	return &domain.LintResult{
		Valid:    res.Valid,
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}, nil
}

// resolveRef returns ref, or the project's default branch when ref is empty
func (c *Client) resolveRef(ctx context.Context, projectPath, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}
	c.logger.Debug("Getting project info to determine default branch", zap.String("project_path", projectPath))
	project, _, err := c.client.Projects.GetProject(projectPath, nil, gitlab.WithContext(ctx))
	if err != nil {
		c.logger.Error("Failed to get project",
			zap.String("project_path", projectPath),
			zap.Error(err))
		return "", fmt.Errorf("failed to get project %s: %w", projectPath, err)
	}
	c.logger.Debug("Retrieved project info",
		zap.String("project_name", project.Name),
		zap.String("default_branch", project.DefaultBranch))
	return project.DefaultBranch, nil
}

// GetFilesList returns every file path in the repository at ref
func (c *Client) GetFilesList(ctx context.Context, repoURL, ref string) ([]string, error) {
	c.logger.Debug("Starting GetFilesList", zap.String("repo_url", repoURL), zap.String("ref", ref))

	projectPath, err := c.ExtractProjectPath(repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract project path from URL %s: %w", repoURL, err)
	}
	ref, err = c.resolveRef(ctx, projectPath, ref)
	if err != nil {
		return nil, err
	}

	var allFiles []string
	page := 1
	perPage := 100

	for {
		c.logger.Debug("Fetching repository tree page",
			zap.String("project_path", projectPath),
			zap.Int("page", page),
			zap.Int("per_page", perPage))

		tree, _, err := c.client.Repositories.ListTree(projectPath, &gitlab.ListTreeOptions{
			Recursive: gitlab.Ptr(true),
			Ref:       gitlab.Ptr(ref),
			ListOptions: gitlab.ListOptions{
				Page:    page,
				PerPage: perPage,
			},
		}, gitlab.WithContext(ctx))
		if err != nil {
			c.logger.Error("Failed to get repository tree",
				zap.String("project_path", projectPath),
				zap.Int("page", page),
				zap.Error(err))
			return nil, fmt.Errorf("failed to get repository tree for %s: %w", projectPath, err)
		}

		for _, item := range tree {
			if item.Type == "blob" { // blob = file, tree = directory
				allFiles = append(allFiles, item.Path)
			}
		}

		// fewer items than requested means this was the last page
		if len(tree) < perPage {
			break
		}
		page++
	}

	c.logger.Debug("Completed GetFilesList",
		zap.String("project_path", projectPath),
		zap.String("ref", ref),
		zap.Int("total_files", len(allFiles)))

	return allFiles, nil
}

// GetFileContent returns the content of a file at ref
func (c *Client) GetFileContent(ctx context.Context, repoURL, ref, filePath string) ([]byte, error) {
	projectPath, err := c.ExtractProjectPath(repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract project path from URL %s: %w", repoURL, err)
	}
	ref, err = c.resolveRef(ctx, projectPath, ref)
	if err != nil {
		return nil, err
	}

	file, _, err := c.client.RepositoryFiles.GetFile(projectPath, filePath, &gitlab.GetFileOptions{
		Ref: gitlab.Ptr(ref),
	}, gitlab.WithContext(ctx))
	if err != nil {
		c.logger.Error("Failed to get file content",
			zap.String("project_path", projectPath),
			zap.String("file_path", filePath),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get file %s from project %s: %w", filePath, projectPath, err)
	}

	content, err := base64.StdEncoding.DecodeString(file.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content for %s: %w", filePath, err)
	}

	c.logger.Debug("Retrieved file content",
		zap.String("file_path", filePath),
		zap.Int("content_size_bytes", len(content)))

	return content, nil
}

// ExtractProjectPath extracts the project path from a GitLab URL
func (c *Client) ExtractProjectPath(gitlabURL string) (string, error) {
	parsedURL, err := url.Parse(gitlabURL)
	if err != nil {
		return "", err
	}

	path := strings.TrimPrefix(parsedURL.Path, "/")
	path = strings.TrimSuffix(path, "/")
	path = strings.TrimSuffix(path, ".git")
	if path == "" {
		return "", fmt.Errorf("no path found in URL: %s", gitlabURL)
	}

	// the API client encodes the path again
	decodedPath, err := url.PathUnescape(path)
	if err != nil {
		decodedPath = path
	}

	return decodedPath, nil
}
