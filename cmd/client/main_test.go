package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_Defaults(t *testing.T) {
	o, err := parseArgs(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", o.host)
	assert.Equal(t, 8080, o.port)
	assert.Equal(t, 10*time.Second, o.heartbeat)
	assert.False(t, o.discover)
}

func TestParseArgs_HostPort(t *testing.T) {
	o, err := parseArgs([]string{"10.0.0.5", "9000"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", o.host)
	assert.Equal(t, 9000, o.port)

	o, err = parseArgs([]string{"--discover", "-v", "lab.local"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "lab.local", o.host)
	assert.True(t, o.discover)
	assert.True(t, o.verbose)
}

func TestParseArgs_Errors(t *testing.T) {
	for _, args := range [][]string{{"h", "x"}, {"h", "0"}, {"a", "1", "b"}, {"--nope"}} {
		_, err := parseArgs(args, io.Discard)
		assert.Error(t, err, "%v", args)
	}
}
