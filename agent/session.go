// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/extension"
	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/message"
)

// Handler connects a session to its embedder: the transport send path
// and the policy hooks. ConfirmSign may block arbitrarily (it usually
// fronts a UI prompt); with SessionConfig.Async set it runs off the
// transport goroutine.
type Handler interface {
	// Send writes one reply frame to the client.
	Send(frame []byte) error

	// ConfirmSign asks the embedder to approve a signing. The match
	// info carries the hop chain that matched, for display.
	ConfirmSign(key *Key, info constraint.MatchInfo) bool

	// RequiresConfirmation lets the embedder force confirmation for
	// keys that were not added with the confirm constraint.
	RequiresConfirmation(key *Key) bool

	// HandleExtension offers an extension message to the embedder
	// before the built-in handling. Returning true claims it and the
	// session replies SUCCESS.
	HandleExtension(name string, body []byte) bool

	// Client identifies the connected peer for logs and prompts.
	Client() string
}

// SessionConfig configures a Session. Manager, Extensions, and Handler
// are required.
type SessionConfig struct {
	Manager    *Manager
	Extensions *extension.Registry
	Handler    Handler
	Logger     *slog.Logger

	// Async runs sign and identity-list handling on a goroutine so a
	// blocking confirmation hook does not hold the transport loop.
	Async bool
}

// Session is one agent connection: the per-connection protocol state
// machine. The transport feeds it raw byte batches via Process and is
// expected to call Process serially; replies go out through the
// handler in request order.
type Session struct {
	manager    *Manager
	extensions *extension.Registry
	handler    Handler
	logger     *slog.Logger
	async      bool

	// buffer reassembles partial frames between Process calls. Only
	// the transport goroutine touches it.
	buffer []byte

	mu            sync.Mutex
	bindings      []constraint.Binding
	bindingFailed bool
	isForwarded   bool
	matchInfo     constraint.MatchInfo

	waitingForConfirmation atomic.Bool
	waitingForKeySelection atomic.Bool
	pending                sync.WaitGroup
}

// NewSession returns a session for one connection.
func NewSession(config SessionConfig) *Session {
	if config.Manager == nil || config.Extensions == nil || config.Handler == nil {
		panic("agent: SessionConfig requires Manager, Extensions, and Handler")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Session{
		manager:    config.Manager,
		extensions: config.Extensions,
		handler:    config.Handler,
		logger:     config.Logger.With("component", "session", "client", config.Handler.Client()),
		async:      config.Async,
	}
}

// Process consumes one batch of bytes from the transport. Complete
// frames are dispatched in order; a trailing partial frame is buffered
// for the next batch. The returned error is fatal for the session
// (malformed framing, or a concurrent blocking request); the transport
// must drop the connection.
func (s *Session) Process(data []byte) error {
	s.buffer = append(s.buffer, data...)

	frames, consumed, err := message.SplitFrames(s.buffer)
	if err != nil {
		s.logger.Error("malformed frame stream", "error", err)
		s.sendFailure()
		secret.Zero(s.buffer)
		s.buffer = nil
		return err
	}
	for _, frame := range frames {
		if err := s.dispatch(frame); err != nil {
			return err
		}
	}

	// Keep only the unconsumed tail; wipe the processed prefix, which
	// may have carried private key material.
	rest := s.buffer[consumed:]
	remainder := make([]byte, len(rest))
	copy(remainder, rest)
	secret.Zero(s.buffer)
	if len(remainder) == 0 {
		remainder = nil
	}
	s.buffer = remainder
	return nil
}

// Close releases the session's buffered state. In-flight confirmation
// or selection hooks are waited out; their replies go to a client that
// may already be gone, which the handler is free to drop.
func (s *Session) Close() {
	s.pending.Wait()
	secret.Zero(s.buffer)
	s.buffer = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings = nil
	s.matchInfo.Clear()
}

// IsForwarded reports whether any session binding declared this
// connection a forwarding hop.
func (s *Session) IsForwarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isForwarded
}

// Client returns the handler's identification of the connected peer.
func (s *Session) Client() string { return s.handler.Client() }

// MatchInfo returns the hop match recorded by the latest constraint
// evaluation. Cleared at every sign boundary.
func (s *Session) MatchInfo() constraint.MatchInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchInfo
}

// bindingState snapshots the binding chain for an evaluation.
func (s *Session) bindingState() ([]constraint.Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]constraint.Binding(nil), s.bindings...), s.bindingFailed
}

func (s *Session) dispatch(frame message.Frame) error {
	// Lock gate: while the manager is locked nothing but an unlock
	// attempt gets through. The keys are sealed, so this is belt and
	// suspenders, but failing early keeps locked agents quiet.
	if s.manager.Locked() && frame.Type != message.TypeUnlock {
		s.logger.Warn("agent locked, rejecting message", "type", frame.Type.String())
		s.sendFailure()
		return nil
	}

	s.logger.Debug("processing message", "type", frame.Type.String())
	switch frame.Type {
	case message.TypeAddIdentity, message.TypeAddIdentityConstrained:
		s.processAddIdentity(frame)
	case message.TypeRemoveIdentity:
		s.processRemoveIdentity(frame)
	case message.TypeRemoveAllIdentities, message.TypeRemoveAllRSAIdentities:
		s.manager.RemoveAll()
		s.sendSuccess()
	case message.TypeSignRequest:
		return s.startBlocking(&s.waitingForConfirmation, frame, s.processSignRequest)
	case message.TypeRequestIdentities:
		return s.startBlocking(&s.waitingForKeySelection, frame, s.processRequestIdentities)
	case message.TypeExtension:
		s.processExtension(frame)
	case message.TypeLock:
		s.processLock(frame)
	case message.TypeUnlock:
		s.processUnlock(frame)
	default:
		// Includes the smartcard messages (20, 21, 26): recognized by
		// name, deliberately not implemented.
		s.logger.Error("unsupported message type", "type", frame.Type.String())
		s.sendFailure()
	}
	return nil
}

// startBlocking runs a potentially blocking handler, on a goroutine
// when the session is async. A second blocking request while one is
// outstanding is a programmer error in the transport wiring: the
// session refuses it fatally rather than interleave replies.
func (s *Session) startBlocking(flag *atomic.Bool, frame message.Frame, fn func(message.Frame)) error {
	if !flag.CompareAndSwap(false, true) {
		s.logger.Error("concurrent blocking request on session", "type", frame.Type.String())
		return ErrConcurrentRequest
	}

	if !s.async {
		defer flag.Store(false)
		fn(frame)
		return nil
	}

	// The frame payload aliases the reassembly buffer, which the next
	// Process call wipes. Copy before leaving the transport goroutine.
	payload := make([]byte, len(frame.Payload))
	copy(payload, frame.Payload)
	owned := message.Frame{Type: frame.Type, Payload: payload}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer flag.Store(false)
		defer secret.Zero(payload)
		fn(owned)
	}()
	return nil
}

func (s *Session) processAddIdentity(frame message.Frame) {
	msg, err := message.ParseAddIdentity(frame, s.manager.algorithms, s.extensions)
	if err != nil {
		s.logger.Error("failed to parse add-identity", "error", err)
		s.sendFailure()
		return
	}
	defer msg.Close()

	key, err := s.manager.AddMessage(msg)
	if err != nil {
		s.logger.Error("failed to add identity", "error", err)
		s.sendFailure()
		return
	}
	s.logger.Debug("identity added", "fingerprint", key.Fingerprint(), "comment", key.Comment())
	s.sendSuccess()
}

func (s *Session) processRemoveIdentity(frame message.Frame) {
	blob, err := message.ParseRemoveIdentity(frame)
	if err != nil {
		s.logger.Error("failed to parse remove-identity", "error", err)
		s.sendFailure()
		return
	}
	s.manager.Remove(blob)
	s.sendSuccess()
}

func (s *Session) processSignRequest(frame message.Frame) {
	request, err := message.ParseSignRequest(frame)
	if err != nil {
		s.logger.Error("failed to parse sign-request", "error", err)
		s.sendFailure()
		return
	}

	key := s.manager.Get(request.KeyBlob)
	if key == nil {
		s.logger.Error("sign request for unknown key")
		s.sendFailure()
		return
	}

	if len(key.Constraints()) > 0 {
		if !s.checkConstrainedSign(key, request) {
			s.clearMatchInfo()
			s.sendFailure()
			return
		}
	}

	if key.ConfirmRequired() || s.handler.RequiresConfirmation(key) {
		if !s.handler.ConfirmSign(key, s.MatchInfo()) {
			s.logger.Warn("sign request declined", "fingerprint", key.Fingerprint())
			s.manager.emitKeyDeclined(key, s)
			s.clearMatchInfo()
			s.sendFailure()
			return
		}
	}

	signature, err := key.Sign(request.Data, request.Flags)
	if err != nil {
		s.logger.Error("signing failed", "fingerprint", key.Fingerprint(), "error", err)
		s.clearMatchInfo()
		s.sendFailure()
		return
	}
	s.manager.emitKeyUsed(key, s)
	s.clearMatchInfo()

	reply, err := message.EncodeSignResponse(signature)
	if err != nil {
		s.logger.Error("encoding sign response", "error", err)
		s.sendFailure()
		return
	}
	s.send(reply)
}

// checkConstrainedSign enforces destination constraints on a sign
// request: the session must be bound, the data must be a hostbound
// userauth request, the constraint chain must permit the target user,
// and the userauth session id must pin to the most recent binding.
func (s *Session) checkConstrainedSign(key *Key, request *message.SignRequest) bool {
	bindings, bindingFailed := s.bindingState()
	if len(bindings) == 0 {
		s.logger.Warn("refusing constrained key on unbound session", "fingerprint", key.Fingerprint())
		return false
	}

	userauth, err := message.ParseUserAuth(request.Data)
	if err != nil {
		s.logger.Warn("refusing constrained key: sign data is not a userauth request", "error", err)
		return false
	}

	var info constraint.MatchInfo
	if !key.Permitted(bindings, bindingFailed, userauth.Username, &info) {
		s.logger.Warn("key not permitted by destination constraints",
			"fingerprint", key.Fingerprint(), "user", userauth.Username)
		return false
	}
	s.mu.Lock()
	s.matchInfo = info
	s.mu.Unlock()

	last := bindings[len(bindings)-1]
	if !secretEqual(userauth.SessionID, last.SessionID) {
		s.logger.Warn("userauth session id does not match most recent binding",
			"fingerprint", key.Fingerprint())
		return false
	}
	return true
}

func (s *Session) processRequestIdentities(frame message.Frame) {
	items := s.manager.List(s)
	identities := make([]message.Identity, 0, len(items))
	for _, item := range items {
		identities = append(identities, message.Identity{Blob: item.Blob, Comment: item.Comment})
	}
	reply, err := message.EncodeIdentitiesAnswer(identities)
	if err != nil {
		s.logger.Error("encoding identities answer", "error", err)
		s.sendFailure()
		return
	}
	s.send(reply)
}

func (s *Session) processExtension(frame message.Frame) {
	name, body, err := message.ParseExtension(frame)
	if err != nil {
		s.logger.Error("failed to parse extension", "error", err)
		s.sendFailure()
		return
	}

	bodyBytes, err := body.Slice(body.Offset(), body.Offset()+body.Remaining())
	if err != nil {
		s.sendFailure()
		return
	}
	if s.handler.HandleExtension(name, bodyBytes) {
		s.sendSuccess()
		return
	}

	if name != extension.SessionBindName {
		s.logger.Error("unsupported extension", "name", name)
		s.sendFailure()
		return
	}

	ext, err := s.extensions.NewMessage(name)
	if err != nil {
		s.logger.Error("session-bind not registered", "error", err)
		s.sendFailure()
		return
	}
	bind, ok := ext.(*extension.SessionBind)
	if !ok {
		s.logger.Error("session-bind factory returned unexpected type")
		s.sendFailure()
		return
	}
	if err := bind.Decode(body); err != nil {
		// A bind that does not verify poisons the session: the chain
		// can no longer be trusted, so constrained keys stop working
		// here permanently.
		s.logger.Error("session-bind failed", "error", err)
		s.mu.Lock()
		s.bindingFailed = true
		s.bindings = nil
		s.mu.Unlock()
		s.sendFailure()
		return
	}

	s.mu.Lock()
	s.bindings = append(s.bindings, bind.Binding())
	s.isForwarded = s.isForwarded || bind.Forwarded
	count := len(s.bindings)
	s.mu.Unlock()

	s.logger.Debug("session bound", "bindings", count, "forwarded", bind.Forwarded)
	s.sendSuccess()
}

func (s *Session) processLock(frame message.Frame) {
	passphrase, err := message.ParsePassphrase(frame)
	if err != nil {
		s.logger.Error("failed to parse lock", "error", err)
		s.sendFailure()
		return
	}
	defer passphrase.Close()

	if err := s.manager.Lock(passphrase); err != nil {
		s.logger.Error("lock failed", "error", err)
		s.sendFailure()
		return
	}
	s.sendSuccess()
}

func (s *Session) processUnlock(frame message.Frame) {
	passphrase, err := message.ParsePassphrase(frame)
	if err != nil {
		s.logger.Error("failed to parse unlock", "error", err)
		s.sendFailure()
		return
	}
	defer passphrase.Close()

	if err := s.manager.Unlock(passphrase); err != nil {
		s.logger.Error("unlock failed", "error", err)
		s.sendFailure()
		return
	}
	s.sendSuccess()
}

func (s *Session) clearMatchInfo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchInfo.Clear()
}

func (s *Session) sendSuccess() {
	s.send(message.EncodeSimple(message.TypeSuccess))
}

func (s *Session) sendFailure() {
	s.send(message.EncodeSimple(message.TypeFailure))
}

func (s *Session) send(frame []byte) {
	if err := s.handler.Send(frame); err != nil {
		s.logger.Error("failed to send reply", "error", err)
	}
}

// secretEqual compares two byte strings without early exit. Session
// ids are not secrets, but the comparison sits on an authentication
// path.
func secretEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
