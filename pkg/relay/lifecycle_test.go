package relay

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/eztransfer/signaling/pkg/history"
	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/eztransfer/signaling/pkg/peers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const receiveTimeout = 2 * time.Second

func connect(m *Manager, addr string) *peers.MockTransport {
	transport := peers.NewMockTransport(addr)
	go m.Serve(transport)
	return transport
}

func send(t *testing.T, transport *peers.MockTransport, raw string) {
	t.Helper()
	require.True(t, transport.Deliver([]byte(raw)), "transport closed before delivering %s", raw)
}

func expect(t *testing.T, transport *peers.MockTransport) messages.Envelope {
	t.Helper()
	select {
	case frame := <-transport.Outbound:
		e, err := messages.DeserializeBytes(frame)
		require.NoError(t, err)
		return e
	case <-time.After(receiveTimeout):
		t.Fatalf("no message received from the relay within %s", receiveTimeout)
	}
	return messages.Envelope{}
}

func expectNothing(t *testing.T, transport *peers.MockTransport) {
	t.Helper()
	select {
	case frame := <-transport.Outbound:
		t.Fatalf("unexpected message %s", string(frame))
	case <-time.After(100 * time.Millisecond):
	}
}

func expectError(t *testing.T, transport *peers.MockTransport, message string) {
	t.Helper()
	e := expect(t, transport)
	require.Equal(t, messages.Error, e.Type)
	text, _ := e.StringField(messages.MessageField)
	assert.Equal(t, message, text)
}

func eventually(t *testing.T, check func() error) {
	t.Helper()
	assert.NoError(t, retry.Do(check, retry.Attempts(20), retry.Delay(50*time.Millisecond), retry.DelayType(retry.FixedDelay)))
}

func pair(t *testing.T, m *Manager) (receiver, sender *peers.MockTransport, code string) {
	t.Helper()
	receiver = connect(m, "10.0.0.1:1000")
	sender = connect(m, "10.0.0.2:2000")
	send(t, receiver, `{"type":"request_code"}`)
	generated := expect(t, receiver)
	require.Equal(t, messages.CodeGenerated, generated.Type)
	code, _ = generated.StringField(messages.CodeField)
	send(t, sender, fmt.Sprintf(`{"type":"request_connection","code":"%s"}`, code))
	require.Equal(t, messages.ConnectionReady, expect(t, sender).Type)
	require.Equal(t, messages.PeerConnected, expect(t, receiver).Type)
	return receiver, sender, code
}

func TestEndToEndPairingAndPeerDisconnect(t *testing.T) {
	// given
	hub := NewHub(WithCodeSource(&sequenceCodeSource{codes: []string{"123456"}}))
	m := NewManager(hub)
	receiver := connect(m, "10.0.0.1:1000")
	sender := connect(m, "10.0.0.2:2000")

	// when
	send(t, receiver, `{"type":"request_code"}`)
	generated := expect(t, receiver)
	send(t, sender, `{"type":"request_connection","code":"123456"}`)

	// then
	assert.Equal(t, messages.CodeGenerated, generated.Type)
	code, _ := generated.StringField(messages.CodeField)
	assert.Equal(t, "123456", code)
	assert.Equal(t, messages.ConnectionReady, expect(t, sender).Type)
	assert.Equal(t, messages.PeerConnected, expect(t, receiver).Type)

	// when
	require.NoError(t, receiver.Close())

	// then
	assert.Equal(t, messages.PeerDisconnected, expect(t, sender).Type)
	eventually(t, func() error {
		if s := hub.Stats(); s != (Stats{Connections: 1}) {
			return fmt.Errorf("unexpected stats %+v", s)
		}
		return nil
	})
	send(t, sender, `{"type":"send_offer","offer":"x"}`)
	expectError(t, sender, "Not paired with anyone.")
}

func TestOfferIsRelayedOnlyToThePeer(t *testing.T) {
	// given
	m := NewManager(NewHub())
	receiver, sender, _ := pair(t, m)
	bystander := connect(m, "10.0.0.3:3000")

	// when
	send(t, receiver, `{"type":"send_offer","offer":{"sdp":"x"}}`)

	// then
	relayed := expect(t, sender)
	assert.JSONEq(t, `{"type":"offer_received","offer":{"sdp":"x"}}`, messages.Serialize(relayed))
	expectNothing(t, sender)
	expectNothing(t, receiver)
	expectNothing(t, bystander)
}

func TestAllSignalingKindsAreTranslated(t *testing.T) {
	// given
	m := NewManager(NewHub())
	receiver, sender, _ := pair(t, m)

	// when
	send(t, sender, `{"type":"send_offer","offer":{"type":"offer","sdp":"v=0"}}`)
	send(t, receiver, `{"type":"send_answer","answer":{"type":"answer","sdp":"v=0"}}`)
	send(t, sender, `{"type":"send_ice","candidate":{"candidate":"candidate:1","sdpMid":"0"}}`)

	// then
	assert.JSONEq(t, `{"type":"offer_received","offer":{"type":"offer","sdp":"v=0"}}`, messages.Serialize(expect(t, receiver)))
	assert.JSONEq(t, `{"type":"answer_received","answer":{"type":"answer","sdp":"v=0"}}`, messages.Serialize(expect(t, sender)))
	assert.JSONEq(t, `{"type":"ice_received","candidate":{"candidate":"candidate:1","sdpMid":"0"}}`, messages.Serialize(expect(t, receiver)))
}

func TestSignalingWhileUnpairedIsRejected(t *testing.T) {
	// given
	m := NewManager(NewHub())
	lonely := connect(m, "10.0.0.1:1000")
	bystander := connect(m, "10.0.0.2:2000")

	// when
	send(t, lonely, `{"type":"send_offer","offer":{"sdp":"x"}}`)

	// then
	expectError(t, lonely, "Not paired with anyone.")
	expectNothing(t, bystander)
}

func TestRequestCodeTwiceIsRejected(t *testing.T) {
	// given
	m := NewManager(NewHub())
	receiver := connect(m, "10.0.0.1:1000")
	send(t, receiver, `{"type":"request_code"}`)
	first := expect(t, receiver)
	code, _ := first.StringField(messages.CodeField)

	// when
	send(t, receiver, `{"type":"request_code"}`)

	// then
	expectError(t, receiver, "Already has a role or is paired.")
	assert.True(t, m.hub.IsPending(code))
}

func TestInvalidCodeIsRejected(t *testing.T) {
	// given
	hub := NewHub(WithCodeSource(&sequenceCodeSource{codes: []string{"111111"}}))
	m := NewManager(hub)
	receiver := connect(m, "10.0.0.1:1000")
	sender := connect(m, "10.0.0.2:2000")
	send(t, receiver, `{"type":"request_code"}`)
	expect(t, receiver)

	// when
	send(t, sender, `{"type":"request_connection","code":"999999"}`)
	send(t, sender, `{"type":"request_connection"}`)
	send(t, sender, `{"type":"request_connection","code":111111}`)

	// then
	expectError(t, sender, "Invalid or unknown code.")
	expectError(t, sender, "Invalid or unknown code.")
	expectError(t, sender, "Invalid or unknown code.")
	assert.True(t, hub.IsPending("111111"))
	expectNothing(t, receiver)
}

func TestMalformedMessagesAreRejectedWithoutStateChange(t *testing.T) {
	// given
	hub := NewHub()
	m := NewManager(hub)
	client := connect(m, "10.0.0.1:1000")

	// when
	send(t, client, `this is not json`)
	send(t, client, `{"no_type":true}`)
	send(t, client, `{"type":"dance"}`)

	// then
	expectError(t, client, "Invalid JSON format.")
	expectError(t, client, "Invalid JSON format.")
	expectError(t, client, "Unknown message type: dance")
	assert.Equal(t, Stats{Connections: 1}, hub.Stats())

	// when
	send(t, client, `{"type":"request_code"}`)

	// then
	assert.Equal(t, messages.CodeGenerated, expect(t, client).Type)
}

func TestServerOnlyKindsAreUnknownWhenSentByClients(t *testing.T) {
	// given
	m := NewManager(NewHub())
	client := connect(m, "10.0.0.1:1000")

	// when
	send(t, client, `{"type":"offer_received","offer":"x"}`)

	// then
	expectError(t, client, "Unknown message type: offer_received")
}

func TestInternalErrorsAreReportedAndConnectionStaysOpen(t *testing.T) {
	// given
	hub := NewHub(WithCodeSource(&sequenceCodeSource{codes: []string{}}))
	m := NewManager(hub)
	client := connect(m, "10.0.0.1:1000")

	// when
	send(t, client, `{"type":"request_code"}`)

	// then
	expectError(t, client, "An internal server error occurred.")
	assert.False(t, client.IsClosed())
	assert.Equal(t, 1, hub.Stats().Connections)
}

func TestConcurrentClaimsThroughTheManager(t *testing.T) {
	// given
	hub := NewHub(WithCodeSource(&sequenceCodeSource{codes: []string{"424242"}}))
	m := NewManager(hub)
	receiver := connect(m, "10.0.0.1:1000")
	c := connect(m, "10.0.0.3:3000")
	d := connect(m, "10.0.0.4:4000")
	send(t, receiver, `{"type":"request_code"}`)
	expect(t, receiver)

	// when
	var wg sync.WaitGroup
	for _, transport := range []*peers.MockTransport{c, d} {
		wg.Add(1)
		go func(transport *peers.MockTransport) {
			defer wg.Done()
			transport.Deliver([]byte(`{"type":"request_connection","code":"424242"}`))
		}(transport)
	}
	wg.Wait()

	// then
	kinds := []messages.Kind{expect(t, c).Type, expect(t, d).Type}
	assert.ElementsMatch(t, []messages.Kind{messages.ConnectionReady, messages.Error}, kinds)
	assert.Equal(t, messages.PeerConnected, expect(t, receiver).Type)
	assert.False(t, hub.IsPending("424242"))
}

func TestSendFailureIsTreatedAsDisconnect(t *testing.T) {
	// given
	hub := NewHub()
	m := NewManager(hub)
	receiver, sender, _ := pair(t, m)
	receiver.FailSends()

	// when
	send(t, sender, `{"type":"send_offer","offer":"x"}`)

	// then
	assert.Equal(t, messages.PeerDisconnected, expect(t, sender).Type)
	expectNothing(t, sender)
	assert.True(t, receiver.IsClosed())
	eventually(t, func() error {
		if s := hub.Stats(); s != (Stats{Connections: 1}) {
			return fmt.Errorf("unexpected stats %+v", s)
		}
		return nil
	})
}

func TestFailedPeerNotificationDoesNotBlockCleanup(t *testing.T) {
	// given
	hub := NewHub()
	m := NewManager(hub)
	receiver, sender, _ := pair(t, m)
	sender.FailSends()

	// when
	require.NoError(t, receiver.Close())

	// then
	eventually(t, func() error {
		if s := hub.Stats(); s != (Stats{}) {
			return fmt.Errorf("unexpected stats %+v", s)
		}
		return nil
	})
	assert.True(t, sender.IsClosed())
}

func TestPendingReceiverDisconnectReleasesItsCode(t *testing.T) {
	// given
	hub := NewHub(WithCodeSource(&sequenceCodeSource{codes: []string{"777777"}}))
	m := NewManager(hub)
	receiver := connect(m, "10.0.0.1:1000")
	sender := connect(m, "10.0.0.2:2000")
	send(t, receiver, `{"type":"request_code"}`)
	expect(t, receiver)

	// when
	require.NoError(t, receiver.Close())
	eventually(t, func() error {
		if hub.IsPending("777777") {
			return fmt.Errorf("code is still pending")
		}
		return nil
	})
	send(t, sender, `{"type":"request_connection","code":"777777"}`)

	// then
	expectError(t, sender, "Invalid or unknown code.")
}

func TestPairingsAreRecordedInHistory(t *testing.T) {
	// given
	storage := history.NewInMemoryStorage(0)
	m := NewManager(NewHub(), WithHistory(storage))

	// when
	_, _, code := pair(t, m)

	// then
	records, err := storage.List(0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, code, records[0].Code)
	assert.Equal(t, "10.0.0.1:1000", records[0].ReceiverAddr)
	assert.Equal(t, "10.0.0.2:2000", records[0].SenderAddr)
	assert.NotEqual(t, records[0].ReceiverID, records[0].SenderID)
}

func TestCloseAllDisconnectsEveryone(t *testing.T) {
	// given
	hub := NewHub()
	m := NewManager(hub)
	receiver, sender, _ := pair(t, m)
	lonely := connect(m, "10.0.0.3:3000")
	eventually(t, func() error {
		if hub.Stats().Connections != 3 {
			return fmt.Errorf("not all connections registered yet")
		}
		return nil
	})

	// when
	assert.NoError(t, m.CloseAll())

	// then
	eventually(t, func() error {
		if s := hub.Stats(); s != (Stats{}) {
			return fmt.Errorf("unexpected stats %+v", s)
		}
		return nil
	})
	assert.True(t, receiver.IsClosed())
	assert.True(t, sender.IsClosed())
	assert.True(t, lonely.IsClosed())
}
