package subscription

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Unlimited marks a limit that does not apply.
const Unlimited = -1

// Features are the capabilities unlocked by a plan.
type Features struct {
	MaxGoals          int  `json:"maxGoals"`
	MaxCryptoAssets   int  `json:"maxCryptoAssets"`
	CryptoPortfolio   bool `json:"cryptoPortfolio"`
	AdvancedAnalytics bool `json:"advancedAnalytics"`
	Export            bool `json:"export"`
	PrioritySupport   bool `json:"prioritySupport"`
	APIAccess         bool `json:"apiAccess"`
}

// Allows reports whether count items stay within limit.
func Allows(limit, count int) bool {
	return limit == Unlimited || count < limit
}

var features = map[core.Plan]Features{
	core.PlanFree: {
		MaxGoals:        3,
		MaxCryptoAssets: 5,
	},
	core.PlanPro: {
		MaxGoals:          Unlimited,
		MaxCryptoAssets:   Unlimited,
		CryptoPortfolio:   true,
		AdvancedAnalytics: true,
		Export:            true,
	},
	core.PlanEnterprise: {
		MaxGoals:          Unlimited,
		MaxCryptoAssets:   Unlimited,
		CryptoPortfolio:   true,
		AdvancedAnalytics: true,
		Export:            true,
		PrioritySupport:   true,
		APIAccess:         true,
	},
}

// FeaturesFor returns the features of plan. Unknown plans get the free tier.
func FeaturesFor(plan core.Plan) Features {
	if f, ok := features[plan]; ok {
		return f
	}
	return features[core.PlanFree]
}

type PlanInfo struct {
	Plan         core.Plan       `json:"plan"`
	Name         string          `json:"name"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice"`
	Features     Features        `json:"features"`
}

// Plans lists the catalogue from cheapest to most expensive.
func Plans() []PlanInfo {
	return []PlanInfo{
		{Plan: core.PlanFree, Name: "Free", MonthlyPrice: decimal.Zero, Features: FeaturesFor(core.PlanFree)},
		{Plan: core.PlanPro, Name: "Pro", MonthlyPrice: decimal.RequireFromString("9.99"), Features: FeaturesFor(core.PlanPro)},
		{Plan: core.PlanEnterprise, Name: "Enterprise", MonthlyPrice: decimal.RequireFromString("29.99"), Features: FeaturesFor(core.PlanEnterprise)},
	}
}
