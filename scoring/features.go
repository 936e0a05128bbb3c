package scoring

// Feature names a PersonProfile can supply
const (
	FeatureWalletBalance           = "wallet_balance"
	FeatureAvgMonthlyTopup         = "avg_monthly_topup"
	FeatureTransactionCount90d     = "transaction_count_last_90_days"
	FeatureCommunityTrustReferrals = "community_trust_referrals"
	FeatureHasSmartPhone           = "has_smart_phone"
	FeatureAge                     = "age"
)

// DefaultColumnOrder is the column layout the bundled trainer writes
var DefaultColumnOrder = ColumnOrder{
	FeatureWalletBalance,
	FeatureAvgMonthlyTopup,
	FeatureTransactionCount90d,
	FeatureCommunityTrustReferrals,
	FeatureHasSmartPhone,
	FeatureAge,
}

var featureExtractors = map[string]func(PersonProfile) float64{
	FeatureWalletBalance:           func(p PersonProfile) float64 { return p.WalletBalance },
	FeatureAvgMonthlyTopup:         func(p PersonProfile) float64 { return p.AvgMonthlyTopup },
	FeatureTransactionCount90d:     func(p PersonProfile) float64 { return float64(p.TransactionCount90d) },
	FeatureCommunityTrustReferrals: func(p PersonProfile) float64 { return float64(p.CommunityTrustReferrals) },
	FeatureHasSmartPhone: func(p PersonProfile) float64 {
		if p.HasSmartPhone {
			return 1
		}
		return 0
	},
	FeatureAge: func(p PersonProfile) float64 { return float64(p.Age) },
}

// IsKnownFeature reports whether name can be derived from a PersonProfile
func IsKnownFeature(name string) bool {
	_, ok := featureExtractors[name]
	return ok
}

// PrepareFeatures maps a profile onto columns, position by position
func PrepareFeatures(p PersonProfile, columns ColumnOrder) (FeatureVector, error) {
	vec := make(FeatureVector, len(columns))
	for i, name := range columns {
		extract, ok := featureExtractors[name]
		if !ok {
			return nil, &FeatureMismatchError{Feature: name}
		}
		vec[i] = extract(p)
	}
	return vec, nil
}
