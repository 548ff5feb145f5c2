package gitops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/llm-code-deploy/deploy-backend/internal/deploy/domain"
)

// WorkDirPrefix names the scratch directories the publisher creates under
// the work root. The janitor sweeps stale directories by this prefix.
const WorkDirPrefix = "deploy-"

// PushResult describes a pushed deployment.
type PushResult struct {
	RepoURL   string
	CommitSHA string
	PagesURL  string
}

// Publisher creates and updates GitHub repositories for artifact sets.
type Publisher struct {
	runner   CommandRunner
	user     string
	token    string
	workRoot string
}

// NewPublisher creates a publisher for the given GitHub identity.
func NewPublisher(runner CommandRunner, user, token, workRoot string) *Publisher {
	return &Publisher{
		runner:   runner,
		user:     user,
		token:    token,
		workRoot: workRoot,
	}
}

// RepoURL returns the public URL of a repository.
func (p *Publisher) RepoURL(repoName string) string {
	return fmt.Sprintf("https://github.com/%s/%s", p.user, repoName)
}

// PagesURL returns the GitHub Pages URL of a repository.
func (p *Publisher) PagesURL(repoName string) string {
	return fmt.Sprintf("https://%s.github.io/%s/", p.user, repoName)
}

// remoteURL returns the token-authenticated push URL. Never log this.
func (p *Publisher) remoteURL(repoName string) string {
	return fmt.Sprintf("https://%s:%s@github.com/%s/%s.git", p.user, p.token, p.user, repoName)
}

// CreateAndPush creates (or reuses) a public repository, writes the artifact
// set plus license and readme, commits and pushes it to main.
func (p *Publisher) CreateAndPush(ctx context.Context, repoName string, artifacts domain.ArtifactSet) (*PushResult, error) {
	workDir, err := p.newWorkDir(repoName)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	if err := p.writeArtifacts(workDir, repoName, artifacts); err != nil {
		return nil, err
	}

	// Create the remote first (it will be empty); a pre-existing repo is fine,
	// the push below just updates it.
	if _, err := p.run(ctx, "", "gh", "repo", "create", repoName, "--public"); err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return nil, err
		}
	}

	steps := [][]string{
		{"git", "init"},
		{"git", "branch", "-M", "main"},
		{"git", "add", "."},
		{"git", "commit", "-m", "Initial commit"},
		{"git", "remote", "add", "origin", p.remoteURL(repoName)},
		{"git", "push", "-u", "origin", "main"},
	}
	for _, step := range steps {
		if _, err := p.run(ctx, workDir, step[0], step[1:]...); err != nil {
			return nil, err
		}
	}

	sha, err := p.headSHA(ctx, workDir)
	if err != nil {
		return nil, err
	}

	return &PushResult{
		RepoURL:   p.RepoURL(repoName),
		CommitSHA: sha,
		PagesURL:  p.PagesURL(repoName),
	}, nil
}

// Update clones an existing repository, overwrites the artifact files and
// pushes a new commit. It never creates a repository.
func (p *Publisher) Update(ctx context.Context, repoName string, artifacts domain.ArtifactSet) (*PushResult, error) {
	workDir, err := p.clone(ctx, repoName)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(workDir)

	for path, content := range artifacts {
		if err := writeFile(workDir, path, content); err != nil {
			return nil, err
		}
	}

	steps := [][]string{
		{"git", "add", "."},
		{"git", "commit", "-m", "Revise application based on new brief"},
		{"git", "push", "origin", "main"},
	}
	for _, step := range steps {
		if _, err := p.run(ctx, workDir, step[0], step[1:]...); err != nil {
			return nil, err
		}
	}

	sha, err := p.headSHA(ctx, workDir)
	if err != nil {
		return nil, err
	}

	return &PushResult{
		RepoURL:   p.RepoURL(repoName),
		CommitSHA: sha,
		PagesURL:  p.PagesURL(repoName),
	}, nil
}

// FetchFile clones a repository and returns the content of one file.
func (p *Publisher) FetchFile(ctx context.Context, repoName, path string) (string, error) {
	workDir, err := p.clone(ctx, repoName)
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(workDir)

	data, err := os.ReadFile(filepath.Join(workDir, filepath.FromSlash(path)))
	if err != nil {
		return "", fmt.Errorf("read %s from %s: %w", path, repoName, err)
	}
	return string(data), nil
}

func (p *Publisher) clone(ctx context.Context, repoName string) (string, error) {
	workDir, err := p.newWorkDir(repoName)
	if err != nil {
		return "", err
	}

	if _, err := p.run(ctx, "", "git", "clone", p.remoteURL(repoName), workDir); err != nil {
		os.RemoveAll(workDir)
		return "", err
	}
	return workDir, nil
}

func (p *Publisher) newWorkDir(repoName string) (string, error) {
	dir, err := os.MkdirTemp(p.workRoot, WorkDirPrefix+repoName+"-")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return dir, nil
}

func (p *Publisher) writeArtifacts(workDir, repoName string, artifacts domain.ArtifactSet) error {
	for path, content := range artifacts {
		if err := writeFile(workDir, path, content); err != nil {
			return err
		}
	}

	if err := writeFile(workDir, "LICENSE", mitLicense(p.user)); err != nil {
		return err
	}

	readme := fmt.Sprintf("# %s\n\nThis project was auto-generated for the LLM Code Deployment project.\n", repoName)
	return writeFile(workDir, "README.md", readme)
}

// run executes a command; non-zero exits become errors carrying stderr.
// The token-bearing remote URL is never echoed into error messages.
func (p *Publisher) run(ctx context.Context, dir, name string, args ...string) (CmdResult, error) {
	res, err := p.runner.Run(ctx, name, args, RunOpts{
		Dir: dir,
		Env: map[string]string{
			"GITHUB_TOKEN": p.token,
			"GH_TOKEN":     p.token,
		},
	})
	if err != nil {
		return res, fmt.Errorf("%s: %w", name, err)
	}
	if res.ExitCode != 0 {
		return res, fmt.Errorf("%s %s failed (exit %d): %s",
			name, firstArg(args), res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return res, nil
}

func (p *Publisher) headSHA(ctx context.Context, workDir string) (string, error) {
	res, err := p.run(ctx, workDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func writeFile(workDir, path, content string) error {
	full := filepath.Join(workDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
