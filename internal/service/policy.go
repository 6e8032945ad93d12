package service

import (
	"fmt"
	"time"

	"relief-token-ledger/config"
)

// Policy is the immutable ledger policy handed to services at construction.
// It never changes after startup; per-request policy lives nowhere.
type Policy struct {
	DailyLimit   int64          // Max tokens a citizen may spend per calendar day
	AdminTZ      *time.Location // Calendar days are computed in this zone
	TokenValue   float64        // Payout currency units per token
	MaxSyncBatch int            // Max intents accepted per sync call
}

// PolicyFromConfig resolves the configured ledger policy, loading the admin
// timezone from the platform tz database.
func PolicyFromConfig(cfg config.LedgerConfig) (Policy, error) {
	tz, err := time.LoadLocation(cfg.AdminTimezone)
	if err != nil {
		return Policy{}, fmt.Errorf("loading admin timezone %q: %w", cfg.AdminTimezone, err)
	}
	return Policy{
		DailyLimit:   cfg.DailyLimit,
		AdminTZ:      tz,
		TokenValue:   cfg.TokenValue,
		MaxSyncBatch: cfg.SyncMaxBatch,
	}, nil
}

// dayBounds returns the [start, end) of the calendar day containing at,
// computed in the admin timezone. The end bound is the next midnight, not
// start+24h; days around DST transitions are 23 or 25 hours long.
func (p Policy) dayBounds(at time.Time) (time.Time, time.Time) {
	local := at.In(p.AdminTZ)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.AdminTZ)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, p.AdminTZ)
	return start, end
}
