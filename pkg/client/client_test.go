package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		expected string
		wantErr  bool
	}{
		{"http", "http://127.0.0.1:8000", "ws://127.0.0.1:8000/ws?token=abc", false},
		{"https with path", "https://relay.example/", "wss://relay.example/ws?token=abc", false},
		{"already websocket", "ws://relay.example", "ws://relay.example/ws?token=abc", false},
		{"unsupported", "ftp://relay.example", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			url, err := WebsocketURL(tt.base, "abc")

			// then
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestFetchTokenRetriesTransientFailures(t *testing.T) {
	// given
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"token":"payload.signature"}`))
	}))
	defer server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// when
	token, err := FetchToken(ctx, server.Client(), server.URL)

	// then
	require.NoError(t, err)
	assert.Equal(t, "payload.signature", token)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchTokenDoesNotRetryMalformedResponses(t *testing.T) {
	// given
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"nope":true}`))
	}))
	defer server.Close()

	// when
	_, err := FetchToken(context.Background(), server.Client(), server.URL)

	// then
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSignalDecoders(t *testing.T) {
	// given
	offer, err := messages.New(messages.OfferReceived, map[string]any{
		messages.OfferField: webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"},
	})
	require.NoError(t, err)
	ice, err := messages.DeserializeString(
		`{"type":"ice_received","candidate":{"candidate":"candidate:1 1 udp 1 10.0.0.1 5000 typ host","sdpMLineIndex":0}}`,
	)
	require.NoError(t, err)

	// when
	decodedOffer, offerErr := Offer(offer)
	decodedCandidate, candidateErr := Candidate(ice)
	_, mismatchErr := Answer(offer)
	_, missingErr := Offer(messages.Envelope{Type: messages.OfferReceived})

	// then
	require.NoError(t, offerErr)
	assert.Equal(t, webrtc.SDPTypeOffer, decodedOffer.Type)
	assert.Equal(t, "v=0", decodedOffer.SDP)
	require.NoError(t, candidateErr)
	assert.Equal(t, "candidate:1 1 udp 1 10.0.0.1 5000 typ host", decodedCandidate.Candidate)
	require.NotNil(t, decodedCandidate.SDPMLineIndex)
	assert.Equal(t, uint16(0), *decodedCandidate.SDPMLineIndex)
	assert.Error(t, mismatchErr)
	assert.Error(t, missingErr)
}
