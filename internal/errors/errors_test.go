package errors_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
)

func TestEConstructor(t *testing.T) {
	got := relayerrs.E(
		"something went wrong",
		relayerrs.Detail{Field: "limit", Error: "was bad"},
		http.StatusBadRequest,
	)
	want := &relayerrs.Error{
		Err: errors.New("something went wrong"),
		Details: []relayerrs.Detail{
			{Field: "limit", Error: "was bad"},
		},
		Status: http.StatusBadRequest,
	}

	assert.Equal(t, want, got)
}

func TestEKind(t *testing.T) {
	cause := errors.New("no statuses returned")
	err := relayerrs.E(cause, relayerrs.KindNoContent)

	assert.Equal(t, relayerrs.KindNoContent, err.Kind)
	assert.Equal(t, "no_content: no statuses returned", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want relayerrs.Kind
	}{
		{
			name: "direct",
			err:  relayerrs.E("bad json", relayerrs.KindDecode),
			want: relayerrs.KindDecode,
		},
		{
			name: "wrapped",
			err:  fmt.Errorf("error fetching: %w", relayerrs.E("no id", relayerrs.KindLookup)),
			want: relayerrs.KindLookup,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: "",
		},
		{
			name: "nil",
			err:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relayerrs.KindOf(tt.err))
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	orig := relayerrs.E("queue is full", http.StatusTooManyRequests)

	byts, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"queue is full","details":null,"status":429}`, string(byts))

	var got relayerrs.Error
	require.NoError(t, json.Unmarshal(byts, &got))
	assert.Equal(t, http.StatusTooManyRequests, got.Status)
	assert.Equal(t, "queue is full", got.Err.Error())
}
