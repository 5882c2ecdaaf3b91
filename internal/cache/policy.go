package cache

import (
	"sync"
	"time"
)

// Tier groups endpoints by how quickly their data changes.
type Tier string

const (
	// TierPermanent is for immutable historical facts.
	TierPermanent Tier = "permanent"
	// TierDaily is for slowly changing reference data.
	TierDaily Tier = "daily"
	// TierFrequent is for data that changes within the day.
	TierFrequent Tier = "frequent"
)

const (
	DefaultPermanentTTL = 365 * 24 * time.Hour
	DefaultDailyTTL     = 24 * time.Hour
	DefaultFrequentTTL  = time.Hour
)

// Classifier picks the tier for a payload returned by an endpoint.
type Classifier func(payload []byte) Tier

// Fixed returns a Classifier that always picks t.
func Fixed(t Tier) Classifier {
	return func([]byte) Tier { return t }
}

// Policy maps endpoints to time-to-live tiers. Unknown endpoints use TierFrequent.
type Policy struct {
	mu    sync.RWMutex
	ttls  map[Tier]time.Duration
	rules map[string]Classifier
}

// NewPolicy creates a policy with default permanent and daily TTLs and the given frequent TTL.
func NewPolicy(frequent time.Duration) *Policy {
	if frequent <= 0 {
		frequent = DefaultFrequentTTL
	}

	return &Policy{
		ttls: map[Tier]time.Duration{
			TierPermanent: DefaultPermanentTTL,
			TierDaily:     DefaultDailyTTL,
			TierFrequent:  frequent,
		},
		rules: make(map[string]Classifier),
	}
}

// Set assigns a classifier to endpoint.
func (p *Policy) Set(endpoint string, c Classifier) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rules[endpoint] = c
}

// SetTTL overrides the duration of a tier.
func (p *Policy) SetTTL(t Tier, ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ttls[t] = ttl
}

// Tier returns the tier for a payload from endpoint.
func (p *Policy) Tier(endpoint string, payload []byte) Tier {
	p.mu.RLock()
	c, ok := p.rules[endpoint]
	p.mu.RUnlock()

	if !ok {
		return TierFrequent
	}

	return c(payload)
}

// TTL returns how long a payload from endpoint stays fresh.
func (p *Policy) TTL(endpoint string, payload []byte) time.Duration {
	t := p.Tier(endpoint, payload)

	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.ttls[t]
}
