package subscription

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// CycleLength is the length of a subscription accounting cycle.
const CycleLength = 15 * 24 * time.Hour

// Sport identifies a sport a subscription can be entitled to.
type Sport string

const (
	SportFootball   Sport = "football"
	SportBasketball Sport = "basketball"
	SportBaseball   Sport = "baseball"
	SportHockey     Sport = "hockey"
	SportVolleyball Sport = "volleyball"
	SportHandball   Sport = "handball"
	SportRugby      Sport = "rugby"
)

// Sports lists every supported sport.
var Sports = []Sport{
	SportFootball,
	SportBasketball,
	SportBaseball,
	SportHockey,
	SportVolleyball,
	SportHandball,
	SportRugby,
}

// Valid reports whether s is a supported sport.
func (s Sport) Valid() bool {
	return slices.Contains(Sports, s)
}

// Credential is an API key issued to a subscriber.
type Credential struct {
	ID             uuid.UUID
	Key            string
	SubscriptionID uuid.UUID
	Active         bool
	LastUsedAt     *time.Time
}

// Subscription holds the entitlement and usage counters of a subscriber.
type Subscription struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Sport          Sport
	Active         bool
	CycleStartDate time.Time
	CycleQuota     int64
	CurrentUsage   int64
}

// DaysElapsed returns the number of whole days since the cycle started.
func (s *Subscription) DaysElapsed(now time.Time) int {
	return int(now.Sub(s.CycleStartDate) / (24 * time.Hour))
}

// CycleExpired reports whether the cycle must roll over at now.
func (s *Subscription) CycleExpired(now time.Time) bool {
	return s.DaysElapsed(now) >= int(CycleLength/(24*time.Hour))
}

// NextReset returns when the current cycle ends.
func (s *Subscription) NextReset() time.Time {
	return s.CycleStartDate.Add(CycleLength)
}

// Remaining returns the quota left in the current cycle, never negative.
func (s *Subscription) Remaining() int64 {
	return max(s.CycleQuota-s.CurrentUsage, 0)
}

// AuthContext is the request-scoped result of a successful authentication.
type AuthContext struct {
	CredentialID   uuid.UUID
	UserID         uuid.UUID
	SubscriptionID uuid.UUID
	Sport          Sport
	RemainingQuota int64
	ResetAt        time.Time
}
