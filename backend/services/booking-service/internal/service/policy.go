package service

import "time"

// Policy holds the tunable business constants.
type Policy struct {
	LoyaltyThreshold        int
	RewardBasePoints        int
	RewardLoyalBonus        int
	DefaultChargingDuration time.Duration
	KWhPerMinute            float64
	BillingUnit             time.Duration
}

// DefaultPolicy returns the stock constants.
func DefaultPolicy() Policy {
	return Policy{
		LoyaltyThreshold:        2,
		RewardBasePoints:        10,
		RewardLoyalBonus:        5,
		DefaultChargingDuration: 2 * time.Hour,
		KWhPerMinute:            0.5,
		BillingUnit:             time.Hour,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.LoyaltyThreshold <= 0 {
		p.LoyaltyThreshold = d.LoyaltyThreshold
	}
	if p.RewardBasePoints < 0 {
		p.RewardBasePoints = d.RewardBasePoints
	}
	if p.RewardLoyalBonus < 0 {
		p.RewardLoyalBonus = d.RewardLoyalBonus
	}
	if p.DefaultChargingDuration <= 0 {
		p.DefaultChargingDuration = d.DefaultChargingDuration
	}
	if p.KWhPerMinute <= 0 {
		p.KWhPerMinute = d.KWhPerMinute
	}
	if p.BillingUnit < time.Minute {
		p.BillingUnit = d.BillingUnit
	}
	return p
}
