package easyhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProxyString(t *testing.T) {
	p := NewProxy("proxy.internal", 3128)
	assert.Equal(t, "proxy.internal:3128", p.String())

	var nilProxy *Proxy
	assert.Equal(t, "", nilProxy.String())
}

func TestProxyEqual(t *testing.T) {
	a := NewProxy("proxy.internal", 3128)
	b := NewProxy("proxy.internal", 3128)
	c := NewProxy("other.internal", 3128)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	var nilProxy *Proxy
	assert.False(t, a.Equal(nilProxy))
	assert.True(t, nilProxy.Equal(nil))
}
