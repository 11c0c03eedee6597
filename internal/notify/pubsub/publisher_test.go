package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/container-status-poller/internal/tracker"
)

func TestPublisherSendsJSONWithAttributes(t *testing.T) {
	t.Parallel()

	var got *pubsub.Message
	p := &Publisher{publish: func(_ context.Context, msg *pubsub.Message) (string, error) {
		got = msg
		return "id-1", nil
	}}

	n := tracker.MilestoneNotification{
		Watch:       tracker.Watch{ID: "w1"},
		ContainerNo: "GLDU9400713",
		Current:     tracker.StatusReady,
		StatusHash:  "h",
	}
	require.NoError(t, p.SendMilestoneNotification(context.Background(), n))
	require.NotNil(t, got)
	require.Equal(t, "status_ready", got.Attributes["event_type"])
	require.Equal(t, "GLDU9400713", got.Attributes["container_no"])

	var decoded tracker.MilestoneNotification
	require.NoError(t, json.Unmarshal(got.Data, &decoded))
	require.Equal(t, "h", decoded.StatusHash)
}

func TestPublisherErrors(t *testing.T) {
	t.Parallel()

	var notifyErr *tracker.NotifyError
	require.ErrorAs(t, (&Publisher{}).SendMilestoneNotification(context.Background(), tracker.MilestoneNotification{}), &notifyErr)

	p := &Publisher{publish: func(context.Context, *pubsub.Message) (string, error) {
		return "", errors.New("permission denied")
	}}
	err := p.SendMilestoneNotification(context.Background(), tracker.MilestoneNotification{})
	require.ErrorAs(t, err, &notifyErr)
	require.ErrorContains(t, err, "permission denied")

	_, err = New(context.Background(), "", "topic")
	require.Error(t, err)
}
