package postgres

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIPv4_Literales(t *testing.T) {
	ip, err := resolveIPv4(context.Background(), "10.0.0.7")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", ip)

	_, err = resolveIPv4(context.Background(), "::1")
	assert.Error(t, err, "una IPv6 literal no tiene equivalente IPv4")
}

func TestDialPreferIPv4_ConectaPorIPv4(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	conn, err := dialPreferIPv4(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "tcp", conn.RemoteAddr().Network())
	assert.Equal(t, ln.Addr().String(), conn.RemoteAddr().String())
}
