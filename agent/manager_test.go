// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/sshagent/constraint"
	"github.com/bureau-foundation/sshagent/lib/clock"
	"github.com/bureau-foundation/sshagent/lib/secret"
	"github.com/bureau-foundation/sshagent/lib/wire"
	"github.com/bureau-foundation/sshagent/sshkey"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// plainLockProvider verifies by byte equality; argon2 hashing has its
// own test and would slow every lock test down.
type plainLockProvider struct {
	stored []byte
}

func (p *plainLockProvider) Lock(passphrase *secret.Buffer) error {
	p.stored = append([]byte(nil), passphrase.Bytes()...)
	return nil
}

func (p *plainLockProvider) Verify(passphrase *secret.Buffer) bool {
	return passphrase.Equal(p.stored)
}

func newTestManager(t *testing.T, clk clock.Clock) *Manager {
	t.Helper()
	if clk == nil {
		clk = clock.Real()
	}
	return NewManager(ManagerConfig{
		Algorithms:   sshkey.DefaultRegistry(),
		Clock:        clk,
		Logger:       testLogger(),
		LockProvider: &plainLockProvider{},
	})
}

// ed25519PrivateBlob builds the ssh-ed25519 private wire layout from a
// deterministic seed.
func ed25519PrivateBlob(t *testing.T, seed byte) *secret.Buffer {
	t.Helper()
	private := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	public := private.Public().(ed25519.PublicKey)

	writer := wire.NewWriter()
	writer.WriteBlob(public)
	writer.WriteBlob(private)
	buffer, err := secret.Copy(writer.Bytes())
	if err != nil {
		t.Fatalf("secret.Copy: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func mustPass(t *testing.T, text string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.Copy([]byte(text))
	if err != nil {
		t.Fatalf("secret.Copy: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestManager_AddDedupe(t *testing.T) {
	manager := newTestManager(t, nil)

	first, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x01), "first comment")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x01), "second comment")
	if err != nil {
		t.Fatalf("Add again: %v", err)
	}

	keys := manager.Keys()
	if len(keys) != 1 {
		t.Fatalf("held %d keys, want 1", len(keys))
	}
	if keys[0].Comment() != "second comment" {
		t.Errorf("surviving comment = %q, want the second", keys[0].Comment())
	}
	if first.Fingerprint() != second.Fingerprint() {
		t.Error("same key produced different fingerprints")
	}
}

func TestManager_AddUnknownAlgorithm(t *testing.T) {
	manager := newTestManager(t, nil)
	if _, err := manager.Add("ssh-dss", ed25519PrivateBlob(t, 0x01), ""); !errors.Is(err, sshkey.ErrUnknownAlgorithm) {
		t.Errorf("Add(ssh-dss) = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestManager_RemoveMissingIsNoOp(t *testing.T) {
	manager := newTestManager(t, nil)
	manager.Remove([]byte("no such key"))
	if len(manager.Keys()) != 0 {
		t.Error("phantom key appeared")
	}
}

func TestManager_GetAndSign(t *testing.T) {
	manager := newTestManager(t, nil)
	key, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x02), "signer")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if got := manager.Get(key.PublicBlob()); got != key {
		t.Error("Get did not return the held key")
	}
	if got := manager.GetByFingerprint(key.Fingerprint()); got != key {
		t.Error("GetByFingerprint did not return the held key")
	}

	data := []byte("sign me")
	signature, err := manager.Sign(key.PublicBlob(), data, 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := sshkey.DefaultRegistry().Verify(key.PublicBlob(), data, signature); err != nil {
		t.Errorf("Verify: %v", err)
	}

	if _, err := manager.Sign([]byte("absent"), data, 0); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Sign(absent) = %v, want ErrKeyNotFound", err)
	}
}

func TestManager_Expiry(t *testing.T) {
	fake := clock.Fake(time.Unix(100000, 0))
	manager := newTestManager(t, fake)

	key, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x03), "short-lived")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	manager.mu.Lock()
	key.lifetime = 60
	manager.mu.Unlock()

	fake.Advance(59 * time.Second)
	manager.CleanupExpired()
	if len(manager.Keys()) != 1 {
		t.Fatal("key expired early")
	}

	fake.Advance(time.Second)
	manager.CleanupExpired()
	if len(manager.Keys()) != 0 {
		t.Fatal("key survived past its lifetime")
	}
}

// recordingObserver records event names in order.
type recordingObserver struct {
	NopObserver
	events []string
}

func (r *recordingObserver) KeyAdded(*Key) { r.events = append(r.events, "added") }
func (r *recordingObserver) KeyPreRemove(*Key) { r.events = append(r.events, "pre-remove") }
func (r *recordingObserver) KeyRemoved(string) { r.events = append(r.events, "removed") }
func (r *recordingObserver) KeysCleared() { r.events = append(r.events, "cleared") }
func (r *recordingObserver) Locked() { r.events = append(r.events, "locked") }
func (r *recordingObserver) Unlocked() { r.events = append(r.events, "unlocked") }

func TestManager_ObserverEvents(t *testing.T) {
	manager := newTestManager(t, nil)
	observer := &recordingObserver{}
	manager.RegisterObserver(observer)

	if _, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x04), "a"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x05), "b"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	manager.RemoveAll()

	want := []string{"added", "added", "pre-remove", "pre-remove", "removed", "removed", "cleared"}
	if len(observer.events) != len(want) {
		t.Fatalf("events = %v, want %v", observer.events, want)
	}
	for i := range want {
		if observer.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", observer.events, want)
		}
	}

	manager.UnregisterObserver(observer)
	if _, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x06), "c"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(observer.events) != len(want) {
		t.Error("unregistered observer still received events")
	}
}

func TestManager_LockUnlock(t *testing.T) {
	manager := newTestManager(t, nil)
	key, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x07), "lockable")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	passphrase := mustPass(t, "testpassword")
	if err := manager.Lock(passphrase); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !manager.Locked() {
		t.Fatal("manager not locked after Lock")
	}
	if err := manager.Lock(passphrase); !errors.Is(err, ErrAlreadyLocked) {
		t.Errorf("second Lock = %v, want ErrAlreadyLocked", err)
	}

	// The handle is gone: signing fails even with a direct pointer.
	if _, err := key.Sign([]byte("data"), 0); !errors.Is(err, ErrLocked) {
		t.Errorf("Sign while locked = %v, want ErrLocked", err)
	}
	// The public half stays visible.
	if key.Fingerprint() == "" || len(key.PublicBlob()) == 0 {
		t.Error("public half vanished under lock")
	}

	if err := manager.Unlock(mustPass(t, "wrong")); !errors.Is(err, ErrBadPassphrase) {
		t.Errorf("Unlock(wrong) = %v, want ErrBadPassphrase", err)
	}
	if err := manager.Unlock(passphrase); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if manager.Locked() {
		t.Fatal("manager still locked after Unlock")
	}

	data := []byte("signs again")
	signature, err := key.Sign(data, 0)
	if err != nil {
		t.Fatalf("Sign after unlock: %v", err)
	}
	if err := sshkey.DefaultRegistry().Verify(key.PublicBlob(), data, signature); err != nil {
		t.Errorf("Verify after unlock: %v", err)
	}

	if err := manager.Unlock(passphrase); !errors.Is(err, ErrNotLocked) {
		t.Errorf("Unlock while open = %v, want ErrNotLocked", err)
	}
}

func TestManager_UnlockBackoff(t *testing.T) {
	fake := clock.Fake(time.Unix(200000, 0))
	manager := newTestManager(t, fake)
	if _, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x08), "k"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	good := mustPass(t, "testpassword")
	wrong := mustPass(t, "wrong")
	if err := manager.Lock(good); err != nil {
		t.Fatalf("Lock: %v", err)
	}

	// Three straight failures close the gate for floor(1.8^3) = 5s.
	for i := 0; i < 3; i++ {
		if err := manager.Unlock(wrong); !errors.Is(err, ErrBadPassphrase) {
			t.Fatalf("Unlock(wrong) #%d = %v", i+1, err)
		}
	}

	var backoff *BackoffError
	err := manager.Unlock(good)
	if !errors.As(err, &backoff) {
		t.Fatalf("Unlock during backoff = %v, want BackoffError", err)
	}
	if backoff.Wait <= 0 || backoff.Wait > 5*time.Second {
		t.Errorf("backoff wait = %v, want (0, 5s]", backoff.Wait)
	}
	// Backoff failures still wrap ErrBadPassphrase for errors.Is.
	if !errors.Is(err, ErrBadPassphrase) {
		t.Error("BackoffError does not unwrap to ErrBadPassphrase")
	}

	fake.Advance(5 * time.Second)
	if err := manager.Unlock(good); err != nil {
		t.Fatalf("Unlock after backoff window: %v", err)
	}
	if manager.Locked() {
		t.Error("manager still locked")
	}
}

func TestManager_LockWithoutProviderPanics(t *testing.T) {
	manager := NewManager(ManagerConfig{
		Algorithms: sshkey.DefaultRegistry(),
		Logger:     testLogger(),
	})
	defer func() {
		if recover() == nil {
			t.Fatal("Lock without a provider did not panic")
		}
	}()
	manager.Lock(mustPass(t, "p"))
}

func TestManager_ListFiltersByConstraints(t *testing.T) {
	manager := newTestManager(t, nil)

	unconstrained, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x09), "open")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	constrained, err := manager.Add("ssh-ed25519", ed25519PrivateBlob(t, 0x0a), "scoped")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	hk := []byte("some host key blob")
	manager.mu.Lock()
	constrained.constraints = []constraint.DestinationConstraint{{
		To: constraint.Hop{Hostname: "h1", Keys: []constraint.HopKey{{Blob: hk}}},
	}}
	manager.mu.Unlock()

	// A session bound to a different host sees only the open key.
	other := []constraint.Binding{{HostKey: []byte("other host"), SessionID: []byte{1}}}
	items := manager.listFor(other, false)
	if len(items) != 1 || items[0].Fingerprint != unconstrained.Fingerprint() {
		t.Errorf("listing = %+v", items)
	}

	// Bound to the permitted host, both are visible.
	match := []constraint.Binding{{HostKey: hk, SessionID: []byte{1}}}
	if items := manager.listFor(match, false); len(items) != 2 {
		t.Errorf("listing at permitted host = %+v", items)
	}
}

func TestArgon2LockProvider(t *testing.T) {
	provider := NewArgon2LockProvider()
	passphrase := mustPass(t, "hunter2")

	if provider.Verify(passphrase) {
		t.Error("unlocked provider verified a passphrase")
	}
	if err := provider.Lock(passphrase); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !provider.Verify(passphrase) {
		t.Error("correct passphrase rejected")
	}
	if provider.Verify(mustPass(t, "hunter3")) {
		t.Error("wrong passphrase accepted")
	}
}
