package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/eztransfer/signaling/pkg/client"
	"github.com/eztransfer/signaling/pkg/messages"
	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

var probeCommand *cli.Command = &cli.Command{
	Name:  "probe",
	Usage: "Pairs two local peers through the signaling server and opens a WebRTC data channel between them",
	Flags: []cli.Flag{
		serverFlag,
		timeoutFlag,
	},
	Action: func(c *cli.Context) error {
		ctx, cancel := context.WithTimeout(c.Context, c.Duration(timeoutFlag.Name))
		defer cancel()
		return runProbe(ctx, c.String(serverFlag.Name))
	},
}

var errPeerLeft = errors.New("peer disconnected during the probe")

type probePeer struct {
	name       string
	signaling  *client.Client
	connection *webrtc.PeerConnection
	logger     logrus.FieldLogger
}

func (p *probePeer) pump(ctx context.Context, errs chan<- error) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-p.signaling.Events():
			if !ok {
				errs <- fmt.Errorf("%s: %w", p.name, client.ErrClosed)
				return
			}
			if handleErr := p.handle(e); handleErr != nil {
				errs <- fmt.Errorf("%s: %w", p.name, handleErr)
				return
			}
		}
	}
}

func (p *probePeer) handle(e messages.Envelope) error {
	p.logger.Debugf("Received %s", e.Type)
	switch e.Type {
	case messages.OfferReceived:
		offer, decodeErr := client.Offer(e)
		if decodeErr != nil {
			return decodeErr
		}
		if setErr := p.connection.SetRemoteDescription(offer); setErr != nil {
			return setErr
		}
		answer, answerErr := p.connection.CreateAnswer(nil)
		if answerErr != nil {
			return answerErr
		}
		if sendErr := p.signaling.SendAnswer(answer); sendErr != nil {
			return sendErr
		}
		return p.connection.SetLocalDescription(answer)
	case messages.AnswerReceived:
		answer, decodeErr := client.Answer(e)
		if decodeErr != nil {
			return decodeErr
		}
		return p.connection.SetRemoteDescription(answer)
	case messages.ICEReceived:
		candidate, decodeErr := client.Candidate(e)
		if decodeErr != nil {
			return decodeErr
		}
		return p.connection.AddICECandidate(candidate)
	case messages.PeerDisconnected:
		return errPeerLeft
	case messages.Error:
		text, _ := e.StringField(messages.MessageField)
		return client.ServerError{Message: text}
	}
	return nil
}

func (p *probePeer) Close() error {
	return multierr.Combine(p.connection.Close(), p.signaling.Close())
}

func dialProbePeer(ctx context.Context, serverURL, name string) (*probePeer, error) {
	token, tokenErr := client.FetchToken(ctx, http.DefaultClient, serverURL)
	if tokenErr != nil {
		return nil, tokenErr
	}
	signaling, dialErr := client.Dial(ctx, serverURL, token)
	if dialErr != nil {
		return nil, dialErr
	}
	connection, connectionErr := webrtc.NewPeerConnection(webrtc.Configuration{})
	if connectionErr != nil {
		return nil, multierr.Combine(connectionErr, signaling.Close())
	}
	p := &probePeer{
		name:       name,
		signaling:  signaling,
		connection: connection,
		logger:     logrus.WithField("peer", name),
	}
	connection.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate == nil {
			return
		}
		if sendErr := signaling.SendICE(candidate.ToJSON()); sendErr != nil {
			p.logger.Warnf("Failed to relay ICE candidate: %v", sendErr)
		}
	})
	return p, nil
}

func runProbe(ctx context.Context, serverURL string) (probeErr error) {
	receiver, receiverErr := dialProbePeer(ctx, serverURL, "receiver")
	if receiverErr != nil {
		return receiverErr
	}
	defer func() { probeErr = multierr.Append(probeErr, receiver.Close()) }()
	sender, senderErr := dialProbePeer(ctx, serverURL, "sender")
	if senderErr != nil {
		return senderErr
	}
	defer func() { probeErr = multierr.Append(probeErr, sender.Close()) }()

	code, codeErr := receiver.signaling.RequestCode(ctx)
	if codeErr != nil {
		return codeErr
	}
	logrus.Infof("Receiver got code %s", code)
	if connectErr := sender.signaling.RequestConnection(ctx, code); connectErr != nil {
		return connectErr
	}
	if _, connectedErr := receiver.signaling.WaitFor(ctx, messages.PeerConnected); connectedErr != nil {
		return connectedErr
	}
	logrus.Info("Peers paired, negotiating a data channel")

	opened := make(chan struct{})
	var openOnce sync.Once
	receiver.connection.OnDataChannel(func(dc *webrtc.DataChannel) {
		dc.OnOpen(func() {
			openOnce.Do(func() { close(opened) })
		})
	})
	if _, channelErr := sender.connection.CreateDataChannel("probe", nil); channelErr != nil {
		return channelErr
	}

	pumpCtx, stopPumps := context.WithCancel(ctx)
	defer stopPumps()
	errs := make(chan error, 2)
	go receiver.pump(pumpCtx, errs)
	go sender.pump(pumpCtx, errs)

	offer, offerErr := sender.connection.CreateOffer(nil)
	if offerErr != nil {
		return offerErr
	}
	// The offer goes out before gathering starts, so the receiver never gets candidates first
	if sendErr := sender.signaling.SendOffer(offer); sendErr != nil {
		return sendErr
	}
	if setErr := sender.connection.SetLocalDescription(offer); setErr != nil {
		return setErr
	}

	select {
	case <-opened:
		logrus.Info("Data channel opened, signaling server works")
		return nil
	case pumpErr := <-errs:
		return pumpErr
	case <-ctx.Done():
		return fmt.Errorf("data channel did not open: %w", ctx.Err())
	}
}
