package xsconfig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSocketPathFromEnv(t *testing.T) {
	t.Setenv(envSocketPath, "/tmp/custom-socket")
	t.Setenv(envRunDir, "")
	assert.Equal(t, "/tmp/custom-socket", socketPath())
}

func TestSocketPathFromRunDir(t *testing.T) {
	t.Setenv(envSocketPath, "")
	t.Setenv(envRunDir, "/tmp/xenstored")
	assert.Equal(t, "/tmp/xenstored/socket", socketPath())
}

func TestSocketPathDefault(t *testing.T) {
	t.Setenv(envSocketPath, "")
	t.Setenv(envRunDir, "")
	assert.Equal(t, "/var/run/xenstored/socket", socketPath())
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithEndpoints(context.Background(), Endpoints{SocketPath: "/x"})
	assert.Equal(t, "/x", FromContext(ctx).SocketPath)
}
