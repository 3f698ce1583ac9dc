package relay

// Pairing is the outcome of a successful code claim
type Pairing struct {
	Code     string
	Receiver ConnectionID
	Sender   ConnectionID

	receiver *session
	sender   *session
}

// RequestCode allocates a pending code for the connection, which becomes a receiver
func (h *Hub) RequestCode(id ConnectionID) (string, error) {
	var code string
	var err error
	h.locked(func() {
		c, ok := h.registry.get(id)
		if !ok {
			err = ErrUnknownConnection
			return
		}
		if c.role != Unassigned {
			err = ErrAlreadyHasRole
			return
		}
		code, err = h.generateCode()
		if err != nil {
			return
		}
		h.registry.pending[code] = c
		c.code = code
		c.role = PendingReceiver
	})
	return code, err
}

// generateCode must be called with the lock held
func (h *Hub) generateCode() (string, error) {
	for {
		candidate, err := h.codes.Next()
		if err != nil {
			return "", NewInternalError(err)
		}
		if _, taken := h.registry.pending[candidate]; !taken {
			return candidate, nil
		}
	}
}

// RequestConnection claims a pending code on behalf of a sender and pairs it with the receiver
// that holds the code. The code is consumed: exactly one of concurrent claims wins.
func (h *Hub) RequestConnection(id ConnectionID, code string) (Pairing, error) {
	var pairing Pairing
	var err error
	h.locked(func() {
		sender, ok := h.registry.get(id)
		if !ok {
			err = ErrUnknownConnection
			return
		}
		receiver, pending := h.registry.pending[code]
		if code == "" || !pending {
			err = ErrInvalidCode
			return
		}
		switch sender.role {
		case Paired:
			err = ErrAlreadyPaired
			return
		case PendingReceiver:
			err = ErrAlreadyHasRole
			return
		}

		delete(h.registry.pending, code)
		receiver.code = ""
		receiver.role = Paired
		receiver.peer = sender
		sender.role = Paired
		sender.peer = receiver
		h.registry.pairs[sender.id] = receiver
		h.registry.pairs[receiver.id] = sender

		pairing = Pairing{
			Code:     code,
			Receiver: receiver.id,
			Sender:   sender.id,
			receiver: receiver.session,
			sender:   sender.session,
		}
	})
	if err == nil {
		h.metrics.Paired()
	}
	return pairing, err
}
