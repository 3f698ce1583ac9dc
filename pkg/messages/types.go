package messages

// Kind is the value of the `type` field of an envelope
type Kind string

const typeField = "type"

// Messages sent by the clients
const (
	RequestCode       Kind = "request_code"
	RequestConnection Kind = "request_connection"
	SendOffer         Kind = "send_offer"
	SendAnswer        Kind = "send_answer"
	SendICE           Kind = "send_ice"
)

// Messages sent by the relay
const (
	CodeGenerated    Kind = "code_generated"
	ConnectionReady  Kind = "connection_ready"
	PeerConnected    Kind = "peer_connected"
	OfferReceived    Kind = "offer_received"
	AnswerReceived   Kind = "answer_received"
	ICEReceived      Kind = "ice_received"
	PeerDisconnected Kind = "peer_disconnected"
	Error            Kind = "error"
)

// Conventional payload field names used by the browser clients
const (
	CodeField      = "code"
	MessageField   = "message"
	OfferField     = "offer"
	AnswerField    = "answer"
	CandidateField = "candidate"
)

// IsClientKind checks if the kind is one of the messages clients are allowed to send
func IsClientKind(k Kind) bool {
	switch k {
	case RequestCode, RequestConnection, SendOffer, SendAnswer, SendICE:
		return true
	}
	return false
}

// IsSignal checks if the kind carries an opaque signaling payload, that is relayed to the peer
func IsSignal(k Kind) bool {
	return k == SendOffer || k == SendAnswer || k == SendICE
}

// NewCodeGenerated tells the receiver which code it should share with the sender
func NewCodeGenerated(code string) Envelope {
	return mustNew(CodeGenerated, map[string]any{CodeField: code})
}

// NewConnectionReady tells the sender, that it was paired with the receiver
func NewConnectionReady() Envelope {
	return Envelope{Type: ConnectionReady}
}

// NewPeerConnected tells the receiver, that a sender claimed its code
func NewPeerConnected() Envelope {
	return Envelope{Type: PeerConnected}
}

// NewPeerDisconnected tells a connection, that its former peer is gone
func NewPeerDisconnected() Envelope {
	return Envelope{Type: PeerDisconnected}
}

// NewError creates an error reply with a human readable message
func NewError(message string) Envelope {
	return mustNew(Error, map[string]any{MessageField: message})
}

// NewRequestCode creates a request for a pairing code
func NewRequestCode() Envelope {
	return Envelope{Type: RequestCode}
}

// NewRequestConnection creates a request to claim given pairing code
func NewRequestConnection(code string) Envelope {
	return mustNew(RequestConnection, map[string]any{CodeField: code})
}
