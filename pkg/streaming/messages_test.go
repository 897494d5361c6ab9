package streaming

import (
	"testing"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalDecode(t *testing.T) {
	data, err := Marshal(TypeObservation, core.Observation{Time: 4, VehicleID: "v1", Speed: 12.5})
	require.NoError(t, err)

	var o core.Observation
	env, err := Decode(data, &o)
	require.NoError(t, err)
	assert.Equal(t, TypeObservation, env.Type)
	assert.Equal(t, "v1", o.VehicleID)
	assert.Equal(t, 12.5, o.Speed)
}

func TestMarshal_NilPayload(t *testing.T) {
	data, err := Marshal(TypeEndRun, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"end_run","payload":null}`, string(data))

	env, err := Decode(data, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeEndRun, env.Type)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("{"), nil)
	assert.Error(t, err)

	var o core.Observation
	_, err = Decode([]byte(`{"type":"observation","payload":"nope"}`), &o)
	assert.Error(t, err)
}
