package messaging

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeMarshalsPayloadAndFields(t *testing.T) {
	lotID := uuid.New()
	payload := LotTransitionEvent{LotID: lotID, FromStatus: "QUEUED", ToStatus: "RUNNING"}

	env, err := NewEnvelope(SubjectLotStarted, lotID, payload, "corr-1")
	require.NoError(t, err)

	assert.Equal(t, SubjectLotStarted, env.Type)
	assert.Equal(t, lotID, env.AggregateID)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.NotEqual(t, uuid.Nil, env.ID)

	var decoded LotTransitionEvent
	require.NoError(t, json.Unmarshal(env.Data, &decoded))
	assert.Equal(t, "RUNNING", decoded.ToStatus)
}

func TestNewEnvelopeRejectsUnmarshalablePayload(t *testing.T) {
	_, err := NewEnvelope(SubjectLotQueued, uuid.New(), make(chan int), "")
	assert.Error(t, err)
}
