package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ecommerce/pkg/domain/model"
)

type Secrets struct {
	Access  string
	Refresh string
}

type TokenConfig struct {
	UserPrefix  string
	AdminPrefix string
	User        Secrets
	Admin       Secrets
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
}

type claims struct {
	UserID string `json:"userId"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

type jwtIssuer struct {
	cfg TokenConfig
}

func NewTokenIssuer(cfg TokenConfig) model.TokenIssuer {
	return &jwtIssuer{cfg: cfg}
}

func (i *jwtIssuer) Prefix(role model.UserRole) string {
	if role == model.RoleAdmin {
		return i.cfg.AdminPrefix
	}
	return i.cfg.UserPrefix
}

func (i *jwtIssuer) secretsFor(prefix string) (Secrets, bool) {
	switch prefix {
	case i.cfg.UserPrefix:
		return i.cfg.User, true
	case i.cfg.AdminPrefix:
		return i.cfg.Admin, true
	default:
		return Secrets{}, false
	}
}

func (s Secrets) of(kind model.TokenKind) []byte {
	if kind == model.RefreshToken {
		return []byte(s.Refresh)
	}
	return []byte(s.Access)
}

// Issue signs an access and a refresh token sharing one jti with the role's secrets.
func (i *jwtIssuer) Issue(user *model.User) (*model.TokenPair, error) {
	secrets, _ := i.secretsFor(i.Prefix(user.Role))
	now := time.Now().UTC()
	jti := uuid.NewString()

	access, err := i.sign(user, model.AccessToken, jti, now, i.cfg.AccessTTL, secrets)
	if err != nil {
		return nil, err
	}
	refresh, err := i.sign(user, model.RefreshToken, jti, now, i.cfg.RefreshTTL, secrets)
	if err != nil {
		return nil, err
	}
	return &model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *jwtIssuer) sign(user *model.User, kind model.TokenKind, jti string, now time.Time, ttl time.Duration, secrets Secrets) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: user.ID.Hex(),
		Kind:   string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(secrets.of(kind))
}

func (i *jwtIssuer) Verify(prefix string, kind model.TokenKind, token string) (*model.TokenClaims, error) {
	secrets, ok := i.secretsFor(prefix)
	if !ok {
		return nil, model.ErrInvalidToken
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return secrets.of(kind), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuedAt())
	if err != nil {
		return nil, model.ErrInvalidToken
	}
	if c.Kind != string(kind) {
		return nil, model.ErrInvalidToken
	}

	userID, err := model.ParseID(c.UserID)
	if err != nil {
		return nil, model.ErrInvalidToken
	}
	var issuedAt time.Time
	if c.IssuedAt != nil {
		issuedAt = c.IssuedAt.Time
	}
	return &model.TokenClaims{UserID: userID, TokenID: c.ID, Kind: kind, IssuedAt: issuedAt}, nil
}
