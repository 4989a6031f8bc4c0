package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	raw := []byte(`{"header":{"type":"command","subtype":"start","pidtarget":"S","pidsource":"T"}}`)

	msg, err := DecodeCommand(raw)
	require.NoError(t, err)
	assert.Equal(t, "start", msg.Header.Subtype)
	assert.Equal(t, "S", msg.Header.PidTarget)
	assert.Equal(t, "T", msg.Header.PidSource)
}

func TestDecodeCommandInvalidJSON(t *testing.T) {
	_, err := DecodeCommand([]byte("not json"))
	require.Error(t, err)
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestTargetsPid(t *testing.T) {
	cases := []struct {
		pidtarget string
		selfName  string
		want      bool
	}{
		{"S", "S", true},
		{"all", "S", true},
		{"*", "S", true},
		{"Q", "S", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, TargetsPid(tc.pidtarget, tc.selfName))
	}
}
