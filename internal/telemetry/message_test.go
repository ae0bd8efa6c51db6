package telemetry

import (
	"testing"

	"deliverysim/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := map[string]LocationMessage{
		"add": {
			MessageType:   MessageTypeAdd,
			EntityID:      "Red:1",
			Company:       model.CompanyRed,
			Name:          "truck",
			PayloadWeight: 5000,
			Speed:         10.25,
			X:             -117.1611,
			Y:             32.7157,
			Heading:       271.5,
		},
		"delete": {
			MessageType:   MessageTypeDelete,
			EntityID:      "Purple:42",
			Company:       model.CompanyPurple,
			PayloadWeight: 1234,
			X:             -117.05,
			Y:             32.8,
		},
	}
	for name, msg := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := Encode(msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestEncodeUsesWireFieldNames(t *testing.T) {
	data, err := Encode(LocationMessage{MessageType: MessageTypeDelete, EntityID: "Blue:7", Company: model.CompanyBlue})
	require.NoError(t, err)

	for _, field := range []string{`"MessageType":1`, `"EntityId":"Blue:7"`, `"Company":2`, `"Name"`, `"PayloadWeight"`, `"Speed"`, `"X"`, `"Y"`, `"Heading"`} {
		assert.Contains(t, string(data), field)
	}
}

func TestDecodeRejectsInvalidMessages(t *testing.T) {
	tests := map[string]string{
		"empty":        ``,
		"not json":     `hello`,
		"wrong type":   `{"MessageType":"add","EntityId":"Red:1"}`,
		"unknown type": `{"MessageType":7,"EntityId":"Red:1"}`,
		"no entity id": `{"MessageType":0,"Company":1}`,
	}
	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(payload))
			assert.ErrorIs(t, err, ErrInvalidMessage)
		})
	}
}

func TestDecodeFromOtherProducers(t *testing.T) {
	// Producers may omit Name and emit integral floats
	msg, err := Decode([]byte(`{"MessageType":0,"EntityId":"Green:3","Company":3,"PayloadWeight":4000,"Speed":12,"X":-117.2,"Y":32.7,"Heading":0}`))
	require.NoError(t, err)

	obs := msg.Observation()
	assert.Equal(t, "Green:3", obs.EntityID)
	assert.Equal(t, model.CompanyGreen, obs.Company)
	assert.Equal(t, "", obs.Name)
	assert.Equal(t, 12.0, obs.Speed)
	assert.Equal(t, -117.2, obs.Position.X())
	assert.Equal(t, 32.7, obs.Position.Y())
}
