// Package token issues the signed approval links sent to parents. A token is
// bound to one dual-consent request and expires with it, so a forwarded or
// stale link can never approve anything else.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"vigorlog/internal/consent/models"
	id "vigorlog/pkg/domain"
	dErrors "vigorlog/pkg/domain-errors"
)

// ApprovalClaims are the JWT claims carried by a parent approval token.
type ApprovalClaims struct {
	RequestID string `json:"request_id"`
	AthleteID string `json:"athlete_id"`
	ParentID  string `json:"parent_id"`
	jwt.RegisteredClaims
}

// Service signs and validates approval tokens with a shared HS256 key.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Issue signs an approval token for the request. The token expires exactly
// when the request window closes.
func (s *Service) Issue(request *models.DualConsentRequest, now time.Time) (string, error) {
	if request == nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "request is required")
	}
	claims := ApprovalClaims{
		RequestID: request.ID.String(),
		AthleteID: request.AthleteID.String(),
		ParentID:  request.ParentID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   request.ParentID.String(),
			ExpiresAt: jwt.NewNumericDate(request.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "failed to sign approval token", err)
	}
	return signed, nil
}

// Validate parses and verifies an approval token. Expired tokens report
// CodeExpired; anything else wrong with the token is CodeInvalidInput.
func (s *Service) Validate(tokenString string) (id.RequestID, id.ParentID, error) {
	if tokenString == "" {
		return id.RequestID{}, id.ParentID{}, dErrors.New(dErrors.CodeInvalidInput, "empty token")
	}

	claims := new(ApprovalClaims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.RequestID{}, id.ParentID{}, dErrors.New(dErrors.CodeExpired, "approval token has expired")
		}
		return id.RequestID{}, id.ParentID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid approval token")
	}
	if !parsed.Valid {
		return id.RequestID{}, id.ParentID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid approval token")
	}

	requestID, err := id.ParseRequestID(claims.RequestID)
	if err != nil {
		return id.RequestID{}, id.ParentID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid request ID in token")
	}
	parentID, err := id.ParseParentID(claims.ParentID)
	if err != nil {
		return id.RequestID{}, id.ParentID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid parent ID in token")
	}
	return requestID, parentID, nil
}
