package epoch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"meshgate/internal/keys"
	"meshgate/pkg/platform/sentinel"
)

type EpochSuite struct {
	suite.Suite
	now time.Time
}

func TestEpochSuite(t *testing.T) {
	suite.Run(t, new(EpochSuite))
}

func (s *EpochSuite) SetupTest() {
	s.now = time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
}

func (s *EpochSuite) TestNext() {
	first, err := Next(Record{}, s.now, time.Minute, nil)
	s.Require().NoError(err)
	s.EqualValues(1, first.ID)
	s.Len(first.Secret, SecretSize)
	s.Equal(s.now.Add(time.Minute), first.Expiry)
	s.Contains(first.Fingerprint, "sha256:")

	second, err := Next(first, s.now.Add(time.Minute), time.Minute, nil)
	s.Require().NoError(err)
	s.EqualValues(2, second.ID)
	s.NotEqual(first.Secret, second.Secret, "each epoch gets a fresh secret")
	s.NotEqual(first.Fingerprint, second.Fingerprint)
}

func (s *EpochSuite) TestNextPropagatesEntropyFailure() {
	_, err := Next(Record{}, s.now, time.Minute, bytes.NewReader([]byte{1, 2, 3}))
	s.Error(err)
}

func (s *EpochSuite) TestSecretNeverSerialized() {
	rec, err := Next(Record{}, s.now, time.Minute, bytes.NewReader(bytes.Repeat([]byte{0xab}, SecretSize)))
	s.Require().NoError(err)
	hexSecret := fmt.Sprintf("%x", rec.Secret)

	raw, err := json.Marshal(rec)
	s.Require().NoError(err)
	s.NotContains(string(raw), hexSecret)
	s.NotContains(string(raw), "q6ur") // base64 prefix of 0xabab...
	s.Contains(string(raw), rec.Fingerprint)

	var logs bytes.Buffer
	slog.New(slog.NewJSONHandler(&logs, nil)).Info("rotated", "epoch", rec)
	s.NotContains(logs.String(), hexSecret)
	s.NotContains(logs.String(), "q6ur")
	s.Contains(logs.String(), rec.Fingerprint)

	s.NotContains(rec.String(), hexSecret)
}

func (s *EpochSuite) TestRegistryStartsUninitialized() {
	r := NewRegistry()
	cur := r.Current()
	s.False(cur.Initialized())
	s.EqualValues(0, cur.ID)

	var zero Registry
	s.EqualValues(0, zero.Current().ID, "zero value registry is usable")
}

func (s *EpochSuite) TestRegistryReplace() {
	r := NewRegistry()
	first, _ := Next(Record{}, s.now, time.Minute, nil)
	s.Require().NoError(r.Replace(first))
	s.Equal(first.ID, r.Current().ID)

	s.Run("rejects non-increasing ids", func() {
		err := r.Replace(first)
		s.True(errors.Is(err, sentinel.ErrInvalidState))
	})

	s.Run("stored secret does not alias the caller", func() {
		second, _ := Next(first, s.now, time.Minute, nil)
		s.Require().NoError(r.Replace(second))
		want := append([]byte(nil), second.Secret...)
		second.Secret[0] ^= 0xff
		s.Equal(want, r.Current().Secret)
	})
}

func TestRegistryConcurrentReadersSeeWholeRecords(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for range 8 {
		wg.Go(func() {
			for {
				select {
				case <-stop:
					return
				default:
				}
				cur := r.Current()
				if cur.Initialized() {
					assert.Equal(t, cur.Fingerprint, keys.Fingerprint(cur.Secret))
				}
			}
		})
	}

	prev := Record{}
	for range 200 {
		next, err := Next(prev, now, time.Second, nil)
		require.NoError(t, err)
		require.NoError(t, r.Replace(next))
		prev = next
	}
	close(stop)
	wg.Wait()
	assert.EqualValues(t, 200, r.Current().ID)
}
