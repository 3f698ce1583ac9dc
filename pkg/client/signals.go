package client

import (
	"encoding/json"
	"fmt"

	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/pion/webrtc/v4"
)

// SendOffer relays a session description offer to the paired peer
func (c *Client) SendOffer(offer webrtc.SessionDescription) error {
	return c.sendSignal(messages.SendOffer, messages.OfferField, offer)
}

// SendAnswer relays a session description answer to the paired peer
func (c *Client) SendAnswer(answer webrtc.SessionDescription) error {
	return c.sendSignal(messages.SendAnswer, messages.AnswerField, answer)
}

// SendICE relays a trickled ICE candidate to the paired peer
func (c *Client) SendICE(candidate webrtc.ICECandidateInit) error {
	return c.sendSignal(messages.SendICE, messages.CandidateField, candidate)
}

func (c *Client) sendSignal(kind messages.Kind, field string, payload any) error {
	e, err := messages.New(kind, map[string]any{field: payload})
	if err != nil {
		return err
	}
	return c.Send(e)
}

// Offer extracts the session description from an offer_received message
func Offer(e messages.Envelope) (webrtc.SessionDescription, error) {
	var offer webrtc.SessionDescription
	return offer, decodeField(e, messages.OfferReceived, messages.OfferField, &offer)
}

// Answer extracts the session description from an answer_received message
func Answer(e messages.Envelope) (webrtc.SessionDescription, error) {
	var answer webrtc.SessionDescription
	return answer, decodeField(e, messages.AnswerReceived, messages.AnswerField, &answer)
}

// Candidate extracts the ICE candidate from an ice_received message
func Candidate(e messages.Envelope) (webrtc.ICECandidateInit, error) {
	var candidate webrtc.ICECandidateInit
	return candidate, decodeField(e, messages.ICEReceived, messages.CandidateField, &candidate)
}

func decodeField(e messages.Envelope, kind messages.Kind, field string, target any) error {
	if e.Type != kind {
		return fmt.Errorf("expected %s, got %s", kind, e.Type)
	}
	raw, ok := e.Field(field)
	if !ok {
		return fmt.Errorf("%s does not contain the %s field", kind, field)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", field, err)
	}
	return nil
}
