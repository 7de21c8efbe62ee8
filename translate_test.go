package easyhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToEngineRequestWithoutProxyLeavesProxyNil(t *testing.T) {
	b, err := NewRequestBuilder().URLString("http://example.com/path")
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	er := toEngineRequest(req, nil)
	assert.Nil(t, er.Proxy)
}

func TestToEngineRequestWithProxyPopulatesPoolKey(t *testing.T) {
	b, err := NewRequestBuilder().URLString("http://example.com/path")
	require.NoError(t, err)
	req, err := b.Build()
	require.NoError(t, err)

	er := toEngineRequest(req, NewProxy("proxy.internal", 3128))
	require.NotNil(t, er.Proxy)
	assert.Equal(t, "proxy.internal", er.Proxy.Host)
	assert.Equal(t, uint16(3128), er.Proxy.Port)
}
