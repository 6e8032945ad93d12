package domain

import "time"

// OwnerType classifies who holds a wallet.
type OwnerType string

const (
	OwnerGovernment OwnerType = "government"
	OwnerNGO        OwnerType = "ngo"
	OwnerMerchant   OwnerType = "merchant"
	OwnerCitizen    OwnerType = "citizen"
	OwnerBank       OwnerType = "bank"
)

// Role is the identity-service role of an authenticated actor.
// The ledger trusts it only to decide which transfers the actor may initiate.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleNGO      Role = "ngo"
	RoleMerchant Role = "merchant"
	RoleCitizen  Role = "citizen"
)

// Wallet identifies an account. It holds no stored balance; balances are
// always derived by folding the ledger. ChainHead anchors the integrity
// chain of entries appended from this wallet.
type Wallet struct {
	Address   string    `json:"address"`
	OwnerType OwnerType `json:"owner_type"`
	ChainHead *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// permittedTransfers lists the from->to owner-type pairs the ledger accepts.
var permittedTransfers = map[OwnerType][]OwnerType{
	OwnerGovernment: {OwnerNGO, OwnerCitizen},
	OwnerNGO:        {OwnerCitizen},
	OwnerCitizen:    {OwnerMerchant},
	OwnerMerchant:   {OwnerBank},
}

// TransferPermitted reports whether a from->to owner-type transition is valid.
func TransferPermitted(from, to OwnerType) bool {
	for _, t := range permittedTransfers[from] {
		if t == to {
			return true
		}
	}
	return false
}

// RoleMayInitiate reports whether a role may initiate transfers out of a
// wallet of the given owner type. Admins act for the government treasury and
// on behalf of any wallet during manual corrections.
func RoleMayInitiate(role Role, from OwnerType) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleNGO:
		return from == OwnerNGO
	case RoleMerchant:
		return from == OwnerMerchant
	case RoleCitizen:
		return from == OwnerCitizen
	}
	return false
}

// ValidOwnerType reports whether s names a known owner type.
func ValidOwnerType(s string) bool {
	switch OwnerType(s) {
	case OwnerGovernment, OwnerNGO, OwnerMerchant, OwnerCitizen, OwnerBank:
		return true
	}
	return false
}
