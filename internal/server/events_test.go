package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClientMessage(t *testing.T) {
	msg, err := decodeClientMessage([]byte(`{"type":"join","code":"0042","name":"Ada"}`))
	require.NoError(t, err)
	assert.Equal(t, joinMessage{Code: "0042", Name: "Ada"}, msg)

	msg, err = decodeClientMessage([]byte(`{"type":"submitAnswer","choiceIndex":0}`))
	require.NoError(t, err)
	answer, ok := msg.(submitAnswerMessage)
	require.True(t, ok)
	require.NotNil(t, answer.ChoiceIndex)
	assert.Equal(t, 0, *answer.ChoiceIndex)

	msg, err = decodeClientMessage([]byte(`{"type":"startGame","extra":true}`))
	require.NoError(t, err)
	assert.Equal(t, msgStartGame, msg.clientMessageType())
}

func TestDecodeClientMessageErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  error
	}{
		{name: "not json", input: `{`, want: ErrMalformed},
		{name: "no type", input: `{}`, want: ErrUnknownType},
		{name: "unknown type", input: `{"type":"teleport"}`, want: ErrUnknownType},
		{name: "missing choice", input: `{"type":"submitAnswer"}`, want: ErrInvalidChoice},
		{name: "string choice", input: `{"type":"submitAnswer","choiceIndex":"1"}`, want: ErrMalformed},
		{name: "bad name", input: `{"type":"setName","name":7}`, want: ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeClientMessage([]byte(tc.input))
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
