package bootstrap

import (
	"context"

	"vault-bootstrap/internal/cluster"
	"vault-bootstrap/internal/vault"

	"github.com/stretchr/testify/mock"
)

// ********
//
// mockAPI is a mock implementation of the vault.API interface
//
// ********
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) Health(ctx context.Context) (*vault.ServerHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.ServerHealth), args.Error(1)
}

func (m *mockAPI) IsInitialized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockAPI) IsSealed(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockAPI) Initialize(ctx context.Context, shares, threshold int) (*vault.InitResult, error) {
	args := m.Called(ctx, shares, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.InitResult), args.Error(1)
}

func (m *mockAPI) SubmitUnsealKey(ctx context.Context, key string) (*vault.SealProgress, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vault.SealProgress), args.Error(1)
}

func (m *mockAPI) ListAuthBackends(ctx context.Context) (map[string]bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockAPI) EnableAuthBackend(ctx context.Context, kind string) error {
	args := m.Called(ctx, kind)
	return args.Error(0)
}

func (m *mockAPI) SetPolicy(ctx context.Context, name, rules string) error {
	args := m.Called(ctx, name, rules)
	return args.Error(0)
}

func (m *mockAPI) CreateRole(ctx context.Context, name string, spec vault.RoleSpec) error {
	args := m.Called(ctx, name, spec)
	return args.Error(0)
}

func (m *mockAPI) GetRoleID(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *mockAPI) ListSecretBackends(ctx context.Context) (map[string]bool, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}

func (m *mockAPI) EnableSecretBackend(ctx context.Context, kind, mountPoint, description string) error {
	args := m.Called(ctx, kind, mountPoint, description)
	return args.Error(0)
}

func (m *mockAPI) SetToken(token string) {
	m.Called(token)
}

// ********
//
// fakeStore is an in-memory StateStore that records every write
//
// ********
type fakeStore struct {
	data   map[string]string
	writes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := s.data[key]
	return value, ok, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.data[key] = value
	s.writes = append(s.writes, key)
	return nil
}

// failingStore rejects every write, for the orphaned-bootstrap path.
type failingStore struct {
	*fakeStore
	err error
}

func (s *failingStore) Set(context.Context, string, string) error {
	return s.err
}

// fakeElection answers leadership queries with a fixed role.
type fakeElection struct {
	leader bool
}

func (e *fakeElection) IsLeader(context.Context) (bool, error) {
	return e.leader, nil
}

// fakeSupervisor reports a fixed running state and records start/restart.
type fakeSupervisor struct {
	running   bool
	starts    int
	restarts  int
	lastError error
}

func (s *fakeSupervisor) IsRunning(context.Context, string) (bool, error) {
	return s.running, s.lastError
}

func (s *fakeSupervisor) Start(context.Context, string) error {
	s.starts++
	return nil
}

func (s *fakeSupervisor) Restart(context.Context, string) error {
	s.restarts++
	return nil
}

var _ cluster.StateStore = (*fakeStore)(nil)
var _ cluster.Election = (*fakeElection)(nil)
