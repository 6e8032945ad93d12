package dto

import "time"

// PaymentRequest is the request body for submitting an online payment.
type PaymentRequest struct {
	FromWallet string  `json:"from_wallet" binding:"required,safe_id,max=64"`
	ToWallet   string  `json:"to_wallet" binding:"required,safe_id,max=64"`
	Amount     int64   `json:"amount" binding:"required,gt=0"`
	Purpose    string  `json:"purpose" binding:"required,max=200"`
	DisasterID *string `json:"disaster_id,omitempty" binding:"omitempty,safe_id,max=64"`
}

// OfflineIntentRequest is one captured offline sale inside a sync batch.
type OfflineIntentRequest struct {
	CitizenWallet  string    `json:"citizen_wallet" binding:"required,safe_id,max=64"`
	Amount         int64     `json:"amount" binding:"required,gt=0"`
	Purpose        string    `json:"purpose" binding:"max=200"`
	LocalTimestamp time.Time `json:"local_timestamp" binding:"required"`
	QRSignature    string    `json:"qr_signature" binding:"omitempty,len=64,hexadecimal"`
}

// SyncBatchRequest is the request body for reconciling offline sales.
// MerchantWallet is only honored for admin callers; merchants always sync
// their own wallet.
type SyncBatchRequest struct {
	MerchantWallet string                 `json:"merchant_wallet,omitempty" binding:"omitempty,safe_id,max=64"`
	Intents        []OfflineIntentRequest `json:"intents" binding:"required,dive"`
}

// SettlementRequest is the request body for a merchant payout.
type SettlementRequest struct {
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	BankReference string `json:"bank_reference" binding:"required,max=64"`
}

// ObservationRequest reports one identity-to-wallet pairing.
type ObservationRequest struct {
	IdentityHash string `json:"identity_hash" binding:"required,len=64,hexadecimal"`
	Wallet       string `json:"wallet" binding:"required,safe_id,max=64"`
}

// ClaimReviewRequest moves a duplicate claim through its review states.
type ClaimReviewRequest struct {
	Status string `json:"status" binding:"required,oneof=FLAGGED REVIEWED CLEARED"`
}

// RegisterWalletRequest is the admin request body for wallet registration.
type RegisterWalletRequest struct {
	Address   string `json:"address" binding:"required,safe_id,max=64"`
	OwnerType string `json:"owner_type" binding:"required,oneof=government ngo merchant citizen bank"`
}

// RegisterDisasterRequest is the admin request body for a disaster allocation.
type RegisterDisasterRequest struct {
	ID              string `json:"id" binding:"required,safe_id,max=64"`
	Name            string `json:"name" binding:"required,max=200"`
	AllocatedTokens int64  `json:"allocated_tokens" binding:"required,gt=0"`
}

// EntryResponse is the response body for one ledger entry.
type EntryResponse struct {
	ID               string  `json:"id"`
	FromWallet       string  `json:"from_wallet"`
	ToWallet         string  `json:"to_wallet"`
	Amount           int64   `json:"amount"`
	Status           string  `json:"status"`
	Purpose          string  `json:"purpose"`
	DisasterID       *string `json:"disaster_id,omitempty"`
	BankReference    *string `json:"bank_reference,omitempty"`
	QRSignature      *string `json:"qr_signature,omitempty"`
	IsOffline        bool    `json:"is_offline"`
	FlaggedForReview bool    `json:"flagged_for_review"`
	FailureReason    *string `json:"failure_reason,omitempty"`
	IntegrityToken   string  `json:"integrity_token"`
	LocalTimestamp   *string `json:"local_timestamp,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

// EntryListResponse is a paginated slice of the ledger.
type EntryListResponse struct {
	Entries  []EntryResponse `json:"entries"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// PendingSettlementResponse is the response for the pending settlement query.
type PendingSettlementResponse struct {
	MerchantWallet    string `json:"merchant_wallet"`
	PendingSettlement int64  `json:"pending_settlement"`
}

// ClaimResponse is the response body for one duplicate-identity claim.
type ClaimResponse struct {
	ID              string   `json:"id"`
	IdentityHash    string   `json:"identity_hash"`
	WalletAddresses []string `json:"wallet_addresses"`
	Status          string   `json:"status"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// WalletResponse is the response body for wallet registration.
type WalletResponse struct {
	Address   string `json:"address"`
	OwnerType string `json:"owner_type"`
	CreatedAt string `json:"created_at"`
}
