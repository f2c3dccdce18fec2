package commitstatus

import (
	"context"
	"io"
	"log/slog"
	"time"

	"refgate/internal/cache"
	"refgate/internal/history"
	"refgate/internal/project"
)

type fakeProvider struct {
	result *Result
	err    error
	calls  int
	repo   string
	ref    string
}

func (f *fakeProvider) GetStatus(ctx context.Context, repositoryPath, reference string) (*Result, error) {
	f.calls++
	f.repo, f.ref = repositoryPath, reference
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.result
	copied.Statuses = append([]Status(nil), f.result.Statuses...)
	return &copied, nil
}

type fakeDeploys struct {
	deploys      []history.DeployRecord
	err          error
	calls        int
	gotGroups    []int64
	gotExcluding int64
}

func (f *fakeDeploys) FindSucceededDeploys(ctx context.Context, projectName string, deployGroupIDs []int64, excludingDeployID int64) ([]history.DeployRecord, error) {
	f.calls++
	f.gotGroups = deployGroupIDs
	f.gotExcluding = excludingDeployID
	return f.deploys, f.err
}

type fakeReleases struct {
	deployed bool
	err      error
	calls    int
}

func (f *fakeReleases) DeployedReferenceToNonProductionStage(ctx context.Context, projectName, reference string) (bool, error) {
	f.calls++
	return f.deployed, f.err
}

type fakeHooks struct {
	statuses []Status
	err      error
	calls    int
	stage    *project.Stage
	ref      string
}

func (f *fakeHooks) RefStatuses(ctx context.Context, proj *project.Project, stage *project.Stage, reference string) ([]Status, error) {
	f.calls++
	f.stage, f.ref = stage, reference
	return f.statuses, f.err
}

// recordingStore remembers the TTL of every write
type recordingStore struct {
	*cache.MemoryStore
	ttls map[string]time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: cache.NewMemoryStore(), ttls: make(map[string]time.Duration)}
}

func (s *recordingStore) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.ttls[key] = ttl
	return s.MemoryStore.Write(ctx, key, value, ttl)
}

var (
	testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stagingStage = &project.Stage{ID: 1, Name: "Staging", DeployGroupIDs: []int64{1}}
	prodStage    = &project.Stage{ID: 2, Name: "Production", Production: true, DeployGroupIDs: []int64{1, 2}}

	testProject = &project.Project{
		Name:       "shop",
		Repository: "acme/shop",
		Stages:     []*project.Stage{stagingStage, prodStage},
	}
)

func timeAgo(d time.Duration) *time.Time {
	t := testNow.Add(-d)
	return &t
}

func successResult() *Result {
	return &Result{
		State: StateSuccess,
		Statuses: []Status{{
			State:       StateSuccess,
			Description: "bar",
			Context:     "ci/build",
			UpdatedAt:   timeAgo(24 * time.Hour),
		}},
	}
}

type fixture struct {
	provider *fakeProvider
	deploys  *fakeDeploys
	releases *fakeReleases
	hooks    *fakeHooks
	store    *recordingStore
}

func newFixture() *fixture {
	return &fixture{
		provider: &fakeProvider{result: successResult()},
		deploys:  &fakeDeploys{},
		releases: &fakeReleases{},
		hooks:    &fakeHooks{},
		store:    newRecordingStore(),
	}
}

// resolver builds a fresh Resolver over the fixture's shared collaborators,
// the way every request in the server gets the same store.
func (f *fixture) resolver() *Resolver {
	r := NewResolver(f.provider, f.deploys, f.releases, f.hooks, f.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.now = func() time.Time { return testNow }
	return r
}

func (f *fixture) resolve(stage *project.Stage, reference string) (*Result, error) {
	return f.resolver().Resolve(context.Background(), Request{
		Project:   testProject,
		Stage:     stage,
		Reference: reference,
	})
}
