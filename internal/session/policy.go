package session

import (
	"log/slog"
	"time"
)

// ActionKind selects which rate policy applies to an interaction.
type ActionKind string

const (
	// ActionGeneral covers ordinary messages. It is a reserved policy
	// hook: no general-message limit is enforced unless configured.
	ActionGeneral ActionKind = "general"
	// ActionTransaction covers value-moving operations.
	ActionTransaction ActionKind = "transaction"
)

// rateWindow is the sliding window for transaction rate limiting.
const rateWindow = time.Hour

// EventSink receives security events. The core only emits; ordering and
// retention are the sink's concern.
type EventSink interface {
	Event(userID, eventType, details string)
}

// Policy evaluates sessions against the configured thresholds. It talks
// to the store exclusively through its load/save contract and never holds
// a lock across an external call.
type Policy struct {
	store          *Store
	maxTxPerHour   int
	sessionTimeout time.Duration
	events         EventSink
	logger         *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewPolicy creates a rate and expiry policy over the given store.
func NewPolicy(store *Store, maxTxPerHour, sessionTimeoutHours int, events EventSink, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		store:          store,
		maxTxPerHour:   maxTxPerHour,
		sessionTimeout: time.Duration(sessionTimeoutHours) * time.Hour,
		events:         events,
		logger:         logger.With("component", "policy"),
		now:            time.Now,
	}
}

// CheckRateLimit reports whether the user may perform an action of the
// given kind. For transactions it prunes the recent-transaction log to
// the trailing hour, rejects at the cap, and otherwise records the new
// timestamp — check and record are one atomic read-modify-write, so two
// transactions for the same user cannot interleave past the cap.
func (p *Policy) CheckRateLimit(userID string, kind ActionKind) bool {
	if kind != ActionTransaction {
		// General-message limiting is a reserved hook; permit all.
		return true
	}

	now := p.now()
	allowed := true
	err := p.store.Update(userID, func(sess Session, ok bool) (Session, bool) {
		if !ok {
			// No session means nothing to throttle; the session check
			// happens separately.
			return sess, false
		}

		cutoff := now.Add(-rateWindow)
		recent := sess.RecentTransactions[:0]
		for _, ts := range sess.RecentTransactions {
			if ts.After(cutoff) {
				recent = append(recent, ts)
			}
		}

		if len(recent) >= p.maxTxPerHour {
			allowed = false
			sess.RecentTransactions = recent
			return sess, true
		}

		sess.RecentTransactions = append(recent, now)
		return sess, true
	})
	if err != nil {
		p.logger.Error("rate limit persistence failed", "user_id", userID, "error", err)
	}

	if !allowed && p.events != nil {
		p.events.Event(userID, "RATE_LIMIT_EXCEEDED", "transaction limit reached")
	}
	return allowed
}

// ValidateSession reports whether the user has a live session. An
// expired session is deleted on detection; a live one gets its activity
// stamp refreshed, so lastActivity is monotonically non-decreasing.
func (p *Policy) ValidateSession(userID string) bool {
	now := p.now()
	valid := false
	expired := false
	err := p.store.Update(userID, func(sess Session, ok bool) (Session, bool) {
		if !ok {
			return sess, false
		}
		if !sess.LastActivity.IsZero() && now.Sub(sess.LastActivity) > p.sessionTimeout {
			expired = true
			return sess, false
		}
		valid = true
		sess.LastActivity = now
		return sess, true
	})
	if err != nil {
		p.logger.Error("session validation persistence failed", "user_id", userID, "error", err)
	}

	if expired && p.events != nil {
		p.events.Event(userID, "SESSION_EXPIRED", "")
	}
	return valid
}
