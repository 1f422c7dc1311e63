package daytime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineIsRFC3339UTC(t *testing.T) {
	svc := New()
	svc.Now = func() time.Time {
		return time.Date(2009, 11, 10, 23, 0, 0, 0, time.UTC)
	}

	assert.Equal(t, "2009-11-10T23:00:00Z", string(svc.Line()))
}

func TestLineConvertsToUTC(t *testing.T) {
	svc := New()
	svc.Now = func() time.Time {
		return time.Date(2009, 11, 10, 23, 0, 0, 0, time.FixedZone("ahead", 2*3600))
	}

	assert.Equal(t, "2009-11-10T21:00:00Z", string(svc.Line()))
}

func TestServePacket(t *testing.T) {
	svc := New()

	reply, ok := svc.ServePacket(context.Background(), nil)
	require.True(t, ok)

	_, err := time.Parse(time.RFC3339, string(reply))
	assert.NoError(t, err)
}
