package testhelpers

import (
	"context"
	"fmt"
	"sync"

	"gitflow.dev/gitflow/internal/jenkins"
)

// Deployment is a job triggered through FakeDeployer
type Deployment struct {
	Env   string
	Cause string
}

// FakeDeployer records triggered deploy jobs
type FakeDeployer struct {
	mu          sync.Mutex
	Deployments []Deployment
	// Err, when set, is returned by Trigger
	Err error
}

var _ jenkins.Deployer = (*FakeDeployer)(nil)

// Trigger records the deployment and returns a build URL numbered by call
func (f *FakeDeployer) Trigger(_ context.Context, env, cause string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	f.Deployments = append(f.Deployments, Deployment{Env: env, Cause: cause})
	return fmt.Sprintf("https://ci.example.com/job/deploy-%s/%d/", env, len(f.Deployments)), nil
}
