package store

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/sports-gateway/internal/subscription"
	"gopkg.in/yaml.v3"
)

// Seed describes credentials and subscriptions to preload into a memory store.
type Seed struct {
	Subscriptions []SeedSubscription `yaml:"subscriptions"`
}

// SeedSubscription is a subscription together with the keys that use it.
type SeedSubscription struct {
	ID             string    `yaml:"id"`
	UserID         string    `yaml:"userId"`
	Sport          string    `yaml:"sport"`
	Active         bool      `yaml:"active"`
	CycleStartDate time.Time `yaml:"cycleStartDate"`
	CycleQuota     int64     `yaml:"cycleQuota"`
	CurrentUsage   int64     `yaml:"currentUsage"`
	Keys           []SeedKey `yaml:"keys"`
}

// SeedKey is a single API key.
type SeedKey struct {
	Key    string `yaml:"key"`
	Active bool   `yaml:"active"`
}

// LoadSeedFile reads a YAML seed file into store.
func LoadSeedFile(path string, store *CredentialMemoryStore) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	return LoadSeed(f, store)
}

// LoadSeed decodes a YAML seed from r into store.
func LoadSeed(r io.Reader, store *CredentialMemoryStore) error {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	for i, s := range seed.Subscriptions {
		sport := subscription.Sport(s.Sport)
		if !sport.Valid() {
			return fmt.Errorf("subscription %d: unknown sport %q", i, s.Sport)
		}

		sub := &subscription.Subscription{
			ID:             parseOrNewUUID(s.ID),
			UserID:         parseOrNewUUID(s.UserID),
			Sport:          sport,
			Active:         s.Active,
			CycleStartDate: s.CycleStartDate,
			CycleQuota:     s.CycleQuota,
			CurrentUsage:   s.CurrentUsage,
		}
		if sub.CycleStartDate.IsZero() {
			sub.CycleStartDate = time.Now()
		}

		store.AddSubscription(sub)

		for _, k := range s.Keys {
			store.AddCredential(&subscription.Credential{
				ID:             uuid.New(),
				Key:            k.Key,
				SubscriptionID: sub.ID,
				Active:         k.Active,
			})
		}
	}

	return nil
}

func parseOrNewUUID(s string) uuid.UUID {
	if id, err := uuid.Parse(s); err == nil {
		return id
	}

	return uuid.New()
}
