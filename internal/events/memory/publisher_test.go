package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishRecordsEvents(t *testing.T) {
	t.Parallel()

	p := New()
	id, err := p.Publish(context.Background(), "snapshot-completions", map[string]string{"snapshot_id": "s1"})
	require.NoError(t, err)
	require.Equal(t, "memory-1", id)

	events := p.Events()
	require.Len(t, events, 1)
	require.Equal(t, "snapshot-completions", events[0].Topic)
}
