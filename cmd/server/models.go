package main

import (
	"github.com/liamcoop/credit/scoring"
)

// UserDataRequest is the body of POST /score and POST /explain.
// Pointer fields let the validator tell a missing field from a zero value.
type UserDataRequest struct {
	UserID                  *string  `json:"user_id" validate:"required"`
	Name                    *string  `json:"name" validate:"required"`
	Age                     *int     `json:"age" validate:"required"`
	Location                *string  `json:"location" validate:"required"`
	WalletBalance           *float64 `json:"wallet_balance" validate:"required"`
	AvgMonthlyTopup         *float64 `json:"avg_monthly_topup" validate:"required"`
	AvgTransactionValue     *float64 `json:"avg_transaction_val" validate:"required"`
	TransactionCount90d     *int     `json:"transaction_count_last_90_days" validate:"required,min=0"`
	HasSmartPhone           *bool    `json:"has_smart_phone" validate:"required"`
	CommunityTrustReferrals *int     `json:"community_trust_referrals" validate:"required,min=0"`
}

// Profile must only be called after validation
func (r *UserDataRequest) Profile() scoring.PersonProfile {
	return scoring.PersonProfile{
		UserID:                  *r.UserID,
		Name:                    *r.Name,
		Age:                     *r.Age,
		Location:                *r.Location,
		WalletBalance:           *r.WalletBalance,
		AvgMonthlyTopup:         *r.AvgMonthlyTopup,
		AvgTransactionValue:     *r.AvgTransactionValue,
		TransactionCount90d:     *r.TransactionCount90d,
		HasSmartPhone:           *r.HasSmartPhone,
		CommunityTrustReferrals: *r.CommunityTrustReferrals,
	}
}

// CreditScoreResponse is the body returned by POST /score
type CreditScoreResponse struct {
	UserID         string  `json:"user_id" example:"user-123"`
	CreditScore    int     `json:"credit_score" example:"712"`
	RiskLevel      string  `json:"risk_level" example:"Medium"`
	ApprovalStatus bool    `json:"approval_status" example:"true"`
	MaxLoanAmount  float64 `json:"max_loan_amount" example:"5000"`
}

func newCreditScoreResponse(d *scoring.ScoreDecision) CreditScoreResponse {
	return CreditScoreResponse{
		UserID:         d.UserID,
		CreditScore:    d.CreditScore,
		RiskLevel:      string(d.RiskLevel),
		ApprovalStatus: d.Approved,
		MaxLoanAmount:  d.MaxLoanAmount.InexactFloat64(),
	}
}

// ExplanationResponse is the body returned by POST /explain
type ExplanationResponse struct {
	UserID               string   `json:"user_id" example:"user-123"`
	BaseScore            int      `json:"base_score" example:"712"`
	TopPositiveFactors   []string `json:"top_positive_factors"`
	TopNegativeFactors   []string `json:"top_negative_factors"`
	NarrativeExplanation string   `json:"narrative_explanation"`
}

func newExplanationResponse(e *scoring.Explanation) ExplanationResponse {
	resp := ExplanationResponse{
		UserID:               e.UserID,
		BaseScore:            e.BaseScore,
		TopPositiveFactors:   e.PositiveFactors,
		TopNegativeFactors:   e.NegativeFactors,
		NarrativeExplanation: e.Narrative,
	}
	if resp.TopPositiveFactors == nil {
		resp.TopPositiveFactors = []string{}
	}
	if resp.TopNegativeFactors == nil {
		resp.TopNegativeFactors = []string{}
	}
	return resp
}

// HealthResponse is returned by the health endpoints
type HealthResponse struct {
	Status    string            `json:"status"`
	Mode      string            `json:"mode,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LogLevelRequest changes the process log level at runtime
type LogLevelRequest struct {
	Level *string `json:"level" validate:"required"`
}

type LogLevelResponse struct {
	Level string `json:"level"`
}
