package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medimandi/medimandi-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	Role           enums.ActorRole
	DistributorKey string
	JTI            string
}

// AccessTokenClaims represents the typed JWT issued to clients. PartyID is
// the retailer or wholesaler identity for marketplace actors; DistributorKey
// identifies distributors on inventory uploads.
type AccessTokenClaims struct {
	UserID         uuid.UUID       `json:"user_id"`
	Role           enums.ActorRole `json:"role"`
	DistributorKey string          `json:"distributor_key,omitempty"`
	jwt.RegisteredClaims
}

// PartyID returns the marketplace identity used for bid and order ownership.
func (c *AccessTokenClaims) PartyID() uuid.UUID {
	return c.UserID
}
