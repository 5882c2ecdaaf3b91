package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/sports-gateway/internal/subscription"
)

// CredentialMemoryStore is an in-memory implementation of subscription.Repository.
type CredentialMemoryStore struct {
	mu            sync.RWMutex
	credentials   map[string]*subscription.Credential // key -> credential
	subscriptions map[uuid.UUID]*subscription.Subscription
}

// NewCredentialMemoryStore creates a new in-memory credential store.
func NewCredentialMemoryStore() *CredentialMemoryStore {
	return &CredentialMemoryStore{
		credentials:   make(map[string]*subscription.Credential),
		subscriptions: make(map[uuid.UUID]*subscription.Subscription),
	}
}

// AddSubscription stores a copy of sub, replacing any subscription with the same id.
func (m *CredentialMemoryStore) AddSubscription(sub *subscription.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *sub
	m.subscriptions[sub.ID] = &s
}

// AddCredential stores a copy of cred, replacing any credential with the same key.
func (m *CredentialMemoryStore) AddCredential(cred *subscription.Credential) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *cred
	m.credentials[cred.Key] = &c
}

func (m *CredentialMemoryStore) LookupCredential(_ context.Context, key string) (*subscription.Credential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.credentials[key]
	if !ok {
		return nil, subscription.ErrNotFound
	}

	c := *cred

	return &c, nil
}

func (m *CredentialMemoryStore) TouchLastUsed(_ context.Context, credentialID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cred := range m.credentials {
		if cred.ID == credentialID {
			stamp := at
			cred.LastUsedAt = &stamp

			return nil
		}
	}

	return subscription.ErrNotFound
}

func (m *CredentialMemoryStore) GetSubscription(_ context.Context, id uuid.UUID) (*subscription.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, subscription.ErrNotFound
	}

	s := *sub

	return &s, nil
}

func (m *CredentialMemoryStore) ResetCycle(_ context.Context, id uuid.UUID, previousStart, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return false, subscription.ErrNotFound
	}

	if !sub.CycleStartDate.Equal(previousStart) {
		return false, nil
	}

	sub.CurrentUsage = 0
	sub.CycleStartDate = now

	return true, nil
}

func (m *CredentialMemoryStore) IncrementUsage(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return 0, subscription.ErrNotFound
	}

	sub.CurrentUsage++

	return sub.CurrentUsage, nil
}

// Compile-time check.
var _ subscription.Repository = (*CredentialMemoryStore)(nil)
