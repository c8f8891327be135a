// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/extension"
	"github.com/bureau-foundation/sshagent/lib/clock"
	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/message"
	"github.com/bureau-foundation/sshagent/sshkey"
)

// PubKeyItem is one listing entry: what an identities-answer or a
// control-socket listing carries per key.
type PubKeyItem struct {
	Fingerprint string
	Type        string
	Comment     string
	Blob        []byte
}

// ManagerConfig configures a Manager. Algorithms is required; Clock
// and Logger default to the real clock and slog.Default. LockProvider
// may be installed later with SetLockProvider, but must be present
// before the first Lock.
type ManagerConfig struct {
	Algorithms   *sshkey.Registry
	Clock        clock.Clock
	Logger       *slog.Logger
	LockProvider LockProvider
}

// Manager is the process-scoped identity store. All mutating
// operations serialize on an internal mutex; observers are invoked
// synchronously under it and must not re-enter the manager.
type Manager struct {
	logger     *slog.Logger
	clock      clock.Clock
	algorithms *sshkey.Registry

	mu           sync.Mutex
	keys         []*Key            // insertion order
	index        map[[32]byte]*Key // blake3(public blob) -> key
	locked       bool
	lockProvider LockProvider

	failedAttempts int
	backoffUntil   time.Time

	observers []Observer
}

// NewManager returns an empty manager.
func NewManager(config ManagerConfig) *Manager {
	if config.Algorithms == nil {
		panic("agent: ManagerConfig.Algorithms is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Manager{
		logger:       config.Logger.With("component", "keymanager"),
		clock:        config.Clock,
		algorithms:   config.Algorithms,
		index:        make(map[[32]byte]*Key),
		lockProvider: config.LockProvider,
	}
}

// SetLockProvider installs the lock provider. Must happen before the
// first Lock.
func (m *Manager) SetLockProvider(provider LockProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockProvider = provider
}

// indexKey addresses a key by its public blob. blake3 here is an index
// digest, not a protocol artifact; equality of blobs is what matters.
func indexKey(publicBlob []byte) [32]byte {
	return blake3.Sum256(publicBlob)
}

// Add parses a private key blob and inserts the identity. An existing
// identity with the same canonical public blob is replaced. Emits
// KeyAdded. The private blob buffer is read, not closed.
func (m *Manager) Add(keyType string, privateBlob *secret.Buffer, comment string) (*Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(keyType, privateBlob, comment)
}

func (m *Manager) addLocked(keyType string, privateBlob *secret.Buffer, comment string) (*Key, error) {
	// Extract the public blob first: it both validates the algorithm
	// and addresses the dedup check, without building a key handle for
	// a blob we may reject.
	publicBlob, err := m.algorithms.ExtractPublic(keyType, privateBlob.Bytes())
	if err != nil {
		return nil, err
	}
	if existing := m.index[indexKey(publicBlob)]; existing != nil {
		m.logger.Info("key already present, replacing", "fingerprint", existing.Fingerprint())
		m.eraseLocked(existing)
	}

	algorithm, err := m.algorithms.Lookup(keyType)
	if err != nil {
		return nil, err
	}
	private, err := algorithm.ParsePrivate(privateBlob.Bytes())
	if err != nil {
		return nil, err
	}

	key := &Key{
		algorithm:   algorithm,
		publicBlob:  publicBlob,
		fingerprint: sshkey.Fingerprint(publicBlob),
		comment:     comment,
		private:     private,
		addedAt:     m.clock.Now(),
	}
	m.keys = append(m.keys, key)
	m.index[indexKey(publicBlob)] = key

	m.logger.Info("key added", "fingerprint", key.Fingerprint(), "type", keyType)
	for _, observer := range m.observers {
		observer.KeyAdded(key)
	}
	return key, nil
}

// AddMessage inserts the identity carried by a decoded add-identity
// message, applying its lifetime, confirm, and destination-constraint
// extension.
func (m *Manager) AddMessage(msg *message.AddIdentity) (*Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, err := m.addLocked(msg.KeyType, msg.PrivateBlob, msg.Comment)
	if err != nil {
		return nil, err
	}
	key.lifetime = msg.Lifetime
	key.confirmRequired = msg.ConfirmRequired
	if restrict, ok := msg.Extension.(*extension.RestrictDestination); ok {
		key.constraints = restrict.Constraints
	}
	return key, nil
}

// Remove erases the identity addressed by the public blob. A missing
// key is a no-op, matching what ssh-add -d expects.
func (m *Manager) Remove(publicBlob []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.index[indexKey(publicBlob)]
	if key == nil || !bytes.Equal(key.publicBlob, publicBlob) {
		return
	}
	for _, observer := range m.observers {
		observer.KeyPreRemove(key)
	}
	fingerprint := key.Fingerprint()
	m.eraseLocked(key)
	m.logger.Info("key removed", "fingerprint", fingerprint)
	for _, observer := range m.observers {
		observer.KeyRemoved(fingerprint)
	}
}

// RemoveAll erases every identity: pre-remove events, the erase, then
// per-key removed events and a final cleared event.
func (m *Manager) RemoveAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	fingerprints := make([]string, 0, len(m.keys))
	for _, key := range m.keys {
		for _, observer := range m.observers {
			observer.KeyPreRemove(key)
		}
		fingerprints = append(fingerprints, key.Fingerprint())
	}
	for _, key := range m.keys {
		key.destroy()
	}
	m.keys = nil
	m.index = make(map[[32]byte]*Key)

	m.logger.Info("all keys removed", "count", len(fingerprints))
	for _, fingerprint := range fingerprints {
		for _, observer := range m.observers {
			observer.KeyRemoved(fingerprint)
		}
	}
	for _, observer := range m.observers {
		observer.KeysCleared()
	}
}

// eraseLocked removes a key from both the ordered list and the index
// and wipes it. Caller holds m.mu and has emitted whatever events the
// operation calls for.
func (m *Manager) eraseLocked(key *Key) {
	for i, candidate := range m.keys {
		if candidate == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	delete(m.index, indexKey(key.publicBlob))
	key.destroy()
}

// Get returns the identity addressed by the public blob, or nil.
func (m *Manager) Get(publicBlob []byte) *Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.index[indexKey(publicBlob)]
	if key == nil || !bytes.Equal(key.publicBlob, publicBlob) {
		return nil
	}
	return key
}

// GetByFingerprint returns the identity with the given display
// fingerprint, or nil.
func (m *Manager) GetByFingerprint(fingerprint string) *Key {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range m.keys {
		if key.Fingerprint() == fingerprint {
			return key
		}
	}
	return nil
}

// Keys returns a snapshot of the identity list in insertion order.
func (m *Manager) Keys() []*Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Key(nil), m.keys...)
}

// List returns the identities visible to a session: those whose
// destination constraints permit the session's binding chain with an
// empty user.
func (m *Manager) List(session *Session) []PubKeyItem {
	bindings, bindingFailed := session.bindingState()
	return m.listFor(bindings, bindingFailed)
}

func (m *Manager) listFor(bindings []constraint.Binding, bindingFailed bool) []PubKeyItem {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]PubKeyItem, 0, len(m.keys))
	for _, key := range m.keys {
		if !key.Permitted(bindings, bindingFailed, "", nil) {
			continue
		}
		items = append(items, PubKeyItem{
			Fingerprint: key.Fingerprint(),
			Type:        key.Type(),
			Comment:     key.Comment(),
			Blob:        key.PublicBlob(),
		})
	}
	m.logger.Debug("listing identities", "visible", len(items), "held", len(m.keys))
	return items
}

// Sign signs data with the identity addressed by the public blob.
func (m *Manager) Sign(publicBlob, data []byte, flags uint32) ([]byte, error) {
	key := m.Get(publicBlob)
	if key == nil {
		return nil, ErrKeyNotFound
	}
	return key.Sign(data, flags)
}

// CleanupExpired removes every identity whose lifetime has elapsed.
// Embedders call this periodically; the manager does not run its own
// timer.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	for _, key := range append([]*Key(nil), m.keys...) {
		if !key.expired(now) {
			continue
		}
		for _, observer := range m.observers {
			observer.KeyPreRemove(key)
		}
		fingerprint := key.Fingerprint()
		m.eraseLocked(key)
		m.logger.Debug("expired key removed", "fingerprint", fingerprint)
		for _, observer := range m.observers {
			observer.KeyRemoved(fingerprint)
		}
	}
}

// Locked reports whether the manager is locked.
func (m *Manager) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// Lock locks the manager: the provider stores a passphrase verifier
// and every identity's private key is sealed under the passphrase.
// Panics if no lock provider is installed — that is an embedder
// misconfiguration, and degrading it to an error would silently
// compromise the lock semantic.
func (m *Manager) Lock(passphrase *secret.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lockProvider == nil {
		panic("agent: Lock called with no lock provider installed")
	}
	if m.locked {
		return ErrAlreadyLocked
	}

	// Store the verifier first: with zero keys held the lock must
	// still hold a passphrase to verify against.
	if err := m.lockProvider.Lock(passphrase); err != nil {
		return err
	}
	for _, key := range m.keys {
		if err := key.seal(passphrase); err != nil {
			return err
		}
	}

	m.locked = true
	m.logger.Info("agent locked")
	for _, observer := range m.observers {
		observer.Locked()
	}
	return nil
}

// Unlock verifies the passphrase and unseals every identity. Failed
// attempts count toward an exponential backoff: after the third
// failure the gate closes for floor(1.8^n) seconds, and attempts made
// while it is closed both fail and extend the count. The counter and
// deadline reset only on success.
func (m *Manager) Unlock(passphrase *secret.Buffer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		return ErrNotLocked
	}
	if m.lockProvider == nil {
		panic("agent: Unlock called with no lock provider installed")
	}

	now := m.clock.Now()
	if now.Before(m.backoffUntil) {
		m.failedAttempts++
		wait := m.backoffUntil.Sub(now)
		m.logger.Warn("unlock rejected by backoff", "wait", wait)
		return &BackoffError{Wait: wait}
	}

	if err := m.unlockKeysLocked(passphrase); err != nil {
		m.failedAttempts++
		if m.failedAttempts > 2 {
			wait := time.Duration(math.Floor(math.Pow(1.8, float64(m.failedAttempts)))) * time.Second
			m.backoffUntil = m.clock.Now().Add(wait)
			m.logger.Warn("too many failed unlock attempts", "backoff", wait)
		}
		return err
	}

	m.locked = false
	m.failedAttempts = 0
	m.backoffUntil = time.Time{}
	m.logger.Info("agent unlocked")
	for _, observer := range m.observers {
		observer.Unlocked()
	}
	return nil
}

func (m *Manager) unlockKeysLocked(passphrase *secret.Buffer) error {
	if !m.lockProvider.Verify(passphrase) {
		return ErrBadPassphrase
	}
	for _, key := range m.keys {
		if err := key.unseal(passphrase); err != nil {
			return fmt.Errorf("%w: %v", ErrBadPassphrase, err)
		}
	}
	return nil
}

// RegisterObserver subscribes an observer to manager events.
func (m *Manager) RegisterObserver(observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, observer)
}

// UnregisterObserver removes a previously registered observer.
func (m *Manager) UnregisterObserver(observer Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, candidate := range m.observers {
		if candidate == observer {
			m.observers = append(m.observers[:i], m.observers[i+1:]...)
			return
		}
	}
}

// emitKeyUsed fires KeyUsed. Called by sessions across the signing
// decision.
func (m *Manager) emitKeyUsed(key *Key, session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, observer := range m.observers {
		observer.KeyUsed(key, session)
	}
}

// emitKeyDeclined fires KeyDeclined.
func (m *Manager) emitKeyDeclined(key *Key, session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, observer := range m.observers {
		observer.KeyDeclined(key, session)
	}
}
