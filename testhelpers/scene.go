package testhelpers

import (
	"path/filepath"
	"testing"

	"gitflow.dev/gitflow/internal/git"
)

// Scene is a temporary repository for a single test, optionally with a bare
// origin remote.
type Scene struct {
	Dir        string
	Repo       *GitRepo
	OriginPath string
}

// SceneSetup is a function type for setting up a scene.
type SceneSetup func(*Scene) error

// NewScene creates a repository under t.TempDir() and runs setup against it.
func NewScene(t *testing.T, setup SceneSetup) *Scene {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "repo")
	repo, err := NewGitRepo(dir)
	if err != nil {
		t.Fatalf("Failed to create Git repo: %v", err)
	}

	scene := &Scene{Dir: dir, Repo: repo}
	if setup != nil {
		if err := setup(scene); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
	}
	return scene
}

// Open returns the Repository Facade for the scene's working tree.
func (s *Scene) Open(t *testing.T) *git.Repo {
	t.Helper()
	repo, err := git.OpenRepo(s.Dir, GitEnv()...)
	if err != nil {
		t.Fatalf("Failed to open repo: %v", err)
	}
	return repo
}

// AddOrigin creates a bare origin and pushes the given branches to it.
func (s *Scene) AddOrigin(branches ...string) error {
	path, err := s.Repo.CreateBareRemote("origin")
	if err != nil {
		return err
	}
	s.OriginPath = path
	if len(branches) == 0 {
		return nil
	}
	args := append([]string{"push", "--quiet", "-u", "origin"}, branches...)
	return s.Repo.RunGitCommand(args...)
}

// FlowSceneSetup creates master with one commit and develop branched from it.
func FlowSceneSetup(scene *Scene) error {
	if err := scene.Repo.CreateChangeAndCommit("initial", "init"); err != nil {
		return err
	}
	return scene.Repo.RunGitCommand("branch", "develop")
}

// FlowSceneWithOriginSetup is FlowSceneSetup plus an origin holding master and develop.
func FlowSceneWithOriginSetup(scene *Scene) error {
	if err := FlowSceneSetup(scene); err != nil {
		return err
	}
	return scene.AddOrigin("master", "develop")
}
