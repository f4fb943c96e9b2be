package agent

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"meshgate/internal/controlplane/handler"
	"meshgate/internal/keys"
	"meshgate/internal/platform/logger"
)

type scriptedSource struct {
	mu  sync.Mutex
	cfg *handler.NodeConfigResponse
	err error
}

func (s *scriptedSource) set(cfg *handler.NodeConfigResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg, s.err = cfg, err
}

func (s *scriptedSource) NodeConfig(context.Context, string) (*handler.NodeConfigResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := *s.cfg
	return &out, nil
}

type recordingApplier struct {
	mu     sync.Mutex
	epochs []uint64
	err    error
}

func (a *recordingApplier) Apply(_ context.Context, epochID uint64, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.epochs = append(a.epochs, epochID)
	return nil
}

func allowed(epochID uint64, material []byte) *handler.NodeConfigResponse {
	psk := keys.Encode(material)
	return &handler.NodeConfigResponse{
		NodeID: "node-a", EpochID: epochID, Allowed: true,
		Membership: "ALLOWED", Reason: "OK", PSKBase64: &psk,
	}
}

func denied(epochID uint64) *handler.NodeConfigResponse {
	return &handler.NodeConfigResponse{
		NodeID: "node-a", EpochID: epochID, Membership: "DENIED", Reason: "LOW_SCORE",
	}
}

// =============================================================================
// Watcher Test Suite
// =============================================================================
// Justification: a node must install each epoch key exactly once; denial or
// poll errors must not touch the interface.

type WatcherSuite struct {
	suite.Suite
	source  *scriptedSource
	applier *recordingApplier
	watcher *Watcher
	logs    *bytes.Buffer
}

func TestWatcherSuite(t *testing.T) {
	suite.Run(t, new(WatcherSuite))
}

func (s *WatcherSuite) SetupTest() {
	s.source = &scriptedSource{}
	s.applier = &recordingApplier{}
	s.logs = &bytes.Buffer{}
	w, err := NewWatcher(s.source, "node-a", 10*time.Millisecond,
		WithApplier(s.applier), WithWatcherLogger(logger.New("DEBUG", s.logs)))
	s.Require().NoError(err)
	s.watcher = w
}

func (s *WatcherSuite) TestAppliesOncePerEpoch() {
	key := bytes.Repeat([]byte{7}, 32)
	s.source.set(allowed(1, key), nil)

	for range 3 {
		_, err := s.watcher.Poll(context.Background())
		s.Require().NoError(err)
	}
	s.Equal([]uint64{1}, s.applier.epochs)

	s.source.set(allowed(2, key), nil)
	_, err := s.watcher.Poll(context.Background())
	s.Require().NoError(err)
	s.Equal([]uint64{1, 2}, s.applier.epochs)

	epoch, ok := s.watcher.AppliedEpoch()
	s.True(ok)
	s.Equal(uint64(2), epoch)
}

func (s *WatcherSuite) TestDeniedDoesNotApply() {
	s.source.set(denied(1), nil)
	cfg, err := s.watcher.Poll(context.Background())
	s.Require().NoError(err)
	s.False(cfg.Allowed)
	s.Empty(s.applier.epochs)
	s.Contains(s.logs.String(), "membership changed")
}

func (s *WatcherSuite) TestMembershipChangeLoggedOnce() {
	s.source.set(denied(1), nil)
	_, _ = s.watcher.Poll(context.Background())
	_, _ = s.watcher.Poll(context.Background())
	s.Equal(1, bytes.Count(s.logs.Bytes(), []byte("membership changed")))

	s.source.set(allowed(2, bytes.Repeat([]byte{1}, 32)), nil)
	_, _ = s.watcher.Poll(context.Background())
	s.Equal(2, bytes.Count(s.logs.Bytes(), []byte("membership changed")))
}

func (s *WatcherSuite) TestApplyFailureRetriesNextPoll() {
	s.applier.err = errors.New("device busy")
	s.source.set(allowed(1, bytes.Repeat([]byte{2}, 32)), nil)

	_, err := s.watcher.Poll(context.Background())
	s.Require().Error(err)
	_, ok := s.watcher.AppliedEpoch()
	s.False(ok)

	s.applier.err = nil
	_, err = s.watcher.Poll(context.Background())
	s.Require().NoError(err)
	s.Equal([]uint64{1}, s.applier.epochs)
}

func (s *WatcherSuite) TestPollErrorIsReturned() {
	s.source.set(nil, errors.New("connection refused"))
	_, err := s.watcher.Poll(context.Background())
	s.Require().Error(err)
	s.Empty(s.applier.epochs)
}

func (s *WatcherSuite) TestRunStopsOnCancel() {
	s.source.set(allowed(5, bytes.Repeat([]byte{3}, 32)), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watcher.Run(ctx) }()

	s.Eventually(func() bool {
		_, ok := s.watcher.AppliedEpoch()
		return ok
	}, time.Second, 5*time.Millisecond)
	cancel()
	s.ErrorIs(<-done, context.Canceled)
}

func TestLogApplierValidatesKeyLength(t *testing.T) {
	var buf bytes.Buffer
	a := LogApplier{Logger: logger.New("INFO", &buf)}

	require.Error(t, a.Apply(context.Background(), 1, []byte("short")))

	key := bytes.Repeat([]byte{9}, 32)
	require.NoError(t, a.Apply(context.Background(), 1, key))
	assert.Contains(t, buf.String(), keys.Fingerprint(key))
	assert.NotContains(t, buf.String(), keys.Encode(key))
}

func TestNewWatcherValidates(t *testing.T) {
	_, err := NewWatcher(nil, "node-a", time.Second)
	require.Error(t, err)
	_, err = NewWatcher(&scriptedSource{}, "", time.Second)
	require.Error(t, err)
	_, err = NewWatcher(&scriptedSource{}, "node-a", 0)
	require.Error(t, err)
}
