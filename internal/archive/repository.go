// Package archive snapshots the password history into a git repository.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/sashakarcz/passify/internal/logger"
)

const remoteName = "origin"

// RepositoryConfig holds configuration for the archive repository
type RepositoryConfig struct {
	LocalPath   string
	Remote      string // optional; pushes are skipped without one
	Branch      string
	FileName    string // archive file, relative to LocalPath
	AuthorName  string
	AuthorEmail string
	Username    string
	Token       string
}

// Repository manages the archive working copy
type Repository struct {
	config *RepositoryConfig
	repo   *git.Repository
	now    func() time.Time
}

// CommitInfo contains information about a Git commit
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrNotInitialized is returned when the repository is used before Initialize
var ErrNotInitialized = errors.New("repository not initialized")

// NewRepository creates a new archive repository manager
func NewRepository(config *RepositoryConfig) *Repository {
	if config.Branch == "" {
		config.Branch = "main"
	}
	if config.FileName == "" {
		config.FileName = "password_history.txt"
	}
	return &Repository{
		config: config,
		now:    time.Now,
	}
}

// Initialize opens the working copy, cloning the remote or creating a fresh
// repository when it does not exist yet
func (r *Repository) Initialize(ctx context.Context) error {
	if _, err := os.Stat(filepath.Join(r.config.LocalPath, ".git")); err == nil {
		repo, err := git.PlainOpen(r.config.LocalPath)
		if err != nil {
			return fmt.Errorf("failed to open existing repository: %w", err)
		}
		r.repo = repo

		logger.Info().
			Str("path", r.config.LocalPath).
			Msg("Opened existing archive repository")
		return nil
	}

	if err := os.MkdirAll(r.config.LocalPath, 0700); err != nil {
		return fmt.Errorf("failed to create local path: %w", err)
	}

	if r.config.Remote != "" {
		err := r.clone(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, transport.ErrEmptyRemoteRepository) {
			return fmt.Errorf("failed to clone repository: %w", err)
		}
		logger.Info().
			Str("remote", r.config.Remote).
			Msg("Archive remote is empty, initializing locally")
	}

	return r.init()
}

// clone clones the archive remote
func (r *Repository) clone(ctx context.Context) error {
	logger.Info().
		Str("remote", r.config.Remote).
		Str("branch", r.config.Branch).
		Str("path", r.config.LocalPath).
		Msg("Cloning archive repository")

	repo, err := git.PlainCloneContext(ctx, r.config.LocalPath, false, &git.CloneOptions{
		URL:           r.config.Remote,
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(r.config.Branch),
		SingleBranch:  true,
		Auth:          r.auth(),
	})
	if err != nil {
		return err
	}

	r.repo = repo
	return nil
}

// init creates an empty repository on the configured branch
func (r *Repository) init() error {
	repo, err := git.PlainInitWithOptions(r.config.LocalPath, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(r.config.Branch),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}

	if r.config.Remote != "" {
		_, err := repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: remoteName,
			URLs: []string{r.config.Remote},
		})
		if err != nil {
			return fmt.Errorf("failed to add remote: %w", err)
		}
	}

	r.repo = repo

	logger.Info().
		Str("path", r.config.LocalPath).
		Str("branch", r.config.Branch).
		Msg("Initialized archive repository")
	return nil
}

// auth returns HTTP basic auth when a token is configured
func (r *Repository) auth() transport.AuthMethod {
	if r.config.Token == "" {
		return nil
	}
	return &http.BasicAuth{
		Username: r.config.Username,
		Password: r.config.Token,
	}
}

// FilePath returns the absolute path of the archive file
func (r *Repository) FilePath() string {
	return filepath.Join(r.config.LocalPath, r.config.FileName)
}

// Commit writes content to the archive file and commits it. The returned
// bool is false when the file already held the same content.
func (r *Repository) Commit(content, message string) (*CommitInfo, bool, error) {
	if r.repo == nil {
		return nil, false, ErrNotInitialized
	}

	if err := os.WriteFile(r.FilePath(), []byte(content), 0600); err != nil {
		return nil, false, fmt.Errorf("failed to write archive file: %w", err)
	}

	worktree, err := r.repo.Worktree()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := worktree.Add(r.config.FileName); err != nil {
		return nil, false, fmt.Errorf("failed to stage archive file: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get worktree status: %w", err)
	}

	if fs, ok := status[r.config.FileName]; !ok || fs.Staging == git.Unmodified {
		current, err := r.GetCurrentCommit()
		if err != nil {
			return nil, false, nil
		}
		return current, false, nil
	}

	_, err = worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  r.config.AuthorName,
			Email: r.config.AuthorEmail,
			When:  r.now(),
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			current, _ := r.GetCurrentCommit()
			return current, false, nil
		}
		return nil, false, fmt.Errorf("failed to commit: %w", err)
	}

	info, err := r.GetCurrentCommit()
	if err != nil {
		return nil, false, err
	}

	logger.Info().
		Str("commit", info.Hash).
		Str("file", r.config.FileName).
		Msg("Committed history archive")

	return info, true, nil
}

// HasRemote reports whether commits are pushed anywhere
func (r *Repository) HasRemote() bool {
	return r.config.Remote != ""
}

// Push pushes the archive branch to the remote. It is a no-op without a
// configured remote or before the first commit.
func (r *Repository) Push(ctx context.Context) error {
	if r.repo == nil {
		return ErrNotInitialized
	}
	if !r.HasRemote() {
		return nil
	}

	ref := plumbing.NewBranchReferenceName(r.config.Branch)
	if _, err := r.repo.Reference(ref, true); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil
		}
		return fmt.Errorf("failed to resolve %s: %w", ref.Short(), err)
	}

	err := r.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)},
		Auth:       r.auth(),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}

	return nil
}

// GetCurrentCommit returns information about the current HEAD commit
func (r *Repository) GetCurrentCommit() (*CommitInfo, error) {
	if r.repo == nil {
		return nil, ErrNotInitialized
	}

	head, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	return newCommitInfo(commit), nil
}

// GetCommitLog returns up to limit commits, newest first
func (r *Repository) GetCommitLog(limit int) ([]*CommitInfo, error) {
	if r.repo == nil {
		return nil, ErrNotInitialized
	}

	head, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []*CommitInfo{}, nil
		}
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}

	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to get commit log: %w", err)
	}
	defer iter.Close()

	commits := []*CommitInfo{}
	for len(commits) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		commits = append(commits, newCommitInfo(c))
	}

	return commits, nil
}

func newCommitInfo(c *object.Commit) *CommitInfo {
	return &CommitInfo{
		Hash:      c.Hash.String(),
		Message:   c.Message,
		Author:    c.Author.Name,
		Timestamp: c.Author.When,
	}
}
