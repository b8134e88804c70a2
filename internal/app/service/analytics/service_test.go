package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/internal/platform/ga4"
)

type call struct {
	clientID string
	userID   string
	events   []ga4.Event
}

type fakeSender struct {
	mu      sync.Mutex
	enabled bool
	err     error
	calls   []call
}

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) Send(_ context.Context, clientID, userID string, events []ga4.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{clientID, userID, events})
	return f.err
}

func newTestService(enabled bool) (*Service, *fakeSender) {
	f := &fakeSender{enabled: enabled}
	return NewService(f, zap.NewNop().Sugar()), f
}

func TestKnown(t *testing.T) {
	require.True(t, Known("analysis_complete"))
	require.True(t, Known("formula_viewed"))
	require.True(t, Known("purchase_failed"))
	require.False(t, Known("not_an_event"))
	require.False(t, Known(""))
}

func TestTrackAnalysisComplete(t *testing.T) {
	s, f := newTestService(true)
	conf := 0.88
	s.TrackAnalysisComplete(context.Background(), AnalysisComplete{
		Identity:        Identity{UserID: "u1"},
		ConfidenceScore: &conf,
		PrimaryPattern:  "Spleen Qi Deficiency",
		DurationMs:      1200,
	})
	s.Wait()

	require.Len(t, f.calls, 1)
	require.Equal(t, "u1", f.calls[0].userID)
	ev := f.calls[0].events[0]
	require.Equal(t, "analysis_complete", ev.Name)
	require.Equal(t, 0.88, ev.Params["confidence_score"])
	require.Equal(t, "analysis", ev.Params["event_category"])
	require.NotContains(t, ev.Params, "scan_id")
}

func TestTrackSubscriptionEvent(t *testing.T) {
	s, f := newTestService(true)
	s.TrackSubscriptionEvent(context.Background(), SubscriptionPaymentSucceeded, SubscriptionEvent{SubscriptionID: "sub_1", Tier: "premium"})
	s.TrackSubscriptionEvent(context.Background(), SubscriptionEventKind("bogus"), SubscriptionEvent{})
	s.Wait()

	require.Len(t, f.calls, 1)
	ev := f.calls[0].events[0]
	require.Equal(t, "purchase", ev.Name)
	require.Equal(t, "USD", ev.Params["currency"])
	require.Equal(t, "sub_1", ev.Params["subscription_id"])
}

func TestTrack_DisabledAndFailuresAreSwallowed(t *testing.T) {
	s, f := newTestService(false)
	s.TrackSignup(context.Background(), Identity{}, "")
	s.Wait()
	require.Empty(t, f.calls)

	s, f = newTestService(true)
	f.err = errors.New("boom")
	s.TrackScanLimitReached(context.Background(), Identity{UserID: "u"}, "free", 1)
	s.Wait()
	require.Len(t, f.calls, 1)
	require.Equal(t, 1, f.calls[0].events[0].Params["limit_reached"])
}

func TestTrackBatch(t *testing.T) {
	s, f := newTestService(true)

	_, err := s.TrackBatch(context.Background(), nil, Identity{})
	require.ErrorIs(t, err, ErrEmptyBatch)

	_, err = s.TrackBatch(context.Background(), []ClientEvent{{Name: "login"}, {Name: "hack"}}, Identity{})
	require.EqualError(t, err, "Unknown event: hack")

	many := make([]ClientEvent, MaxBatchEvents+1)
	for i := range many {
		many[i] = ClientEvent{Name: "click"}
	}
	_, err = s.TrackBatch(context.Background(), many, Identity{})
	require.Error(t, err)

	n, err := s.TrackBatch(context.Background(), []ClientEvent{
		{Name: "camera_used"},
		{Name: "share", Params: map[string]any{"method": "link", "skip": nil}},
	}, Identity{ClientID: "c1"})
	require.NoError(t, err)
	require.Equal(t, 2, n)
	s.Wait()

	require.Len(t, f.calls, 1)
	require.Equal(t, "c1", f.calls[0].clientID)
	require.Len(t, f.calls[0].events, 2)
	require.Equal(t, map[string]any{"method": "link"}, f.calls[0].events[1].Params)
}
