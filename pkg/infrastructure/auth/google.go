package auth

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/idtoken"

	"ecommerce/pkg/domain/model"
)

type googleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) model.IdentityVerifier {
	return &googleVerifier{clientID: clientID}
}

func (v *googleVerifier) Verify(ctx context.Context, idToken string) (*model.ExternalIdentity, error) {
	payload, err := idtoken.Validate(ctx, idToken, v.clientID)
	if err != nil {
		log.WithError(err).Info("google id token rejected")
		return nil, model.ErrInvalidToken
	}
	return identityFromClaims(payload.Claims), nil
}

func identityFromClaims(claims map[string]interface{}) *model.ExternalIdentity {
	identity := &model.ExternalIdentity{}
	identity.Email, _ = claims["email"].(string)
	identity.Name, _ = claims["name"].(string)
	switch verified := claims["email_verified"].(type) {
	case bool:
		identity.EmailVerified = verified
	case string:
		identity.EmailVerified = verified == "true"
	}
	return identity
}
