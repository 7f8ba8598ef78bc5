package model

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrEmailTaken         = newError(ErrConflict, "email already exists")
	ErrInvalidCredentials = newError(ErrBadRequest, "invalid password")
	ErrProviderMismatch   = newError(ErrBadRequest, "please login on system")
	ErrUserNotConfirmed   = newError(ErrBadRequest, "please confirm your email first")
	ErrAlreadyConfirmed   = newError(ErrBadRequest, "email already confirmed")
	ErrPasswordMismatch   = newError(ErrBadRequest, "passwords don't match")
	ErrEmailNotVerified   = newError(ErrUnauthorized, "email not verified by identity provider")
	ErrInvalidToken       = newError(ErrUnauthorized, "invalid token")
	ErrCredentialsChanged = newError(ErrUnauthorized, "credentials changed, please login again")
	ErrRoleNotAllowed     = newError(ErrUnauthorized, "not authorized to access this route")
	ErrMissingToken       = newError(ErrUnauthorized, "missing authorization")
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type UserProvider string

const (
	ProviderLocal  UserProvider = "local"
	ProviderGoogle UserProvider = "google"
)

type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

type User struct {
	ID                  primitive.ObjectID   `bson:"_id" json:"id"`
	FirstName           string               `bson:"fName" json:"fName"`
	LastName            string               `bson:"lName" json:"lName"`
	Email               string               `bson:"email" json:"email"`
	HashedPassword      string               `bson:"password,omitempty" json:"-"`
	Age                 int                  `bson:"age,omitempty" json:"age,omitempty"`
	Gender              Gender               `bson:"gender,omitempty" json:"gender,omitempty"`
	Role                UserRole             `bson:"role" json:"role"`
	Provider            UserProvider         `bson:"provider" json:"provider"`
	Confirmed           bool                 `bson:"isConfirmed" json:"isConfirmed"`
	ChangeCredentialsAt time.Time            `bson:"changeCredentialsAt" json:"-"`
	Wishlist            []primitive.ObjectID `bson:"wishlist" json:"wishlist"`
	CreatedAt           time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) UserName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SplitUserName is the inverse of UserName for the external identity flow,
// where only a display name is known.
func SplitUserName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// ToggleWishlist adds productID when absent and removes it otherwise.
// It reports whether the product is on the wishlist afterwards.
func (u *User) ToggleWishlist(productID primitive.ObjectID) bool {
	for i, id := range u.Wishlist {
		if id == productID {
			u.Wishlist = append(u.Wishlist[:i], u.Wishlist[i+1:]...)
			return false
		}
	}
	u.Wishlist = append(u.Wishlist, productID)
	return true
}

type UserRepository interface {
	NextID() primitive.ObjectID
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Find(ctx context.Context, id primitive.ObjectID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

type PasswordManager interface {
	Hash(plainText string) (string, error)
	Check(hashed, plainText string) (bool, error)
}

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type TokenClaims struct {
	UserID   primitive.ObjectID
	TokenID  string
	Kind     TokenKind
	IssuedAt time.Time
}

// IssuedBefore reports whether the token predates t at the token's one-second resolution.
func (c *TokenClaims) IssuedBefore(t time.Time) bool {
	return c.IssuedAt.Before(t.Truncate(time.Second))
}

type TokenIssuer interface {
	Issue(user *User) (*TokenPair, error)
	// Verify checks token against the secret selected by the bearer prefix and
	// the expected token kind.
	Verify(prefix string, kind TokenKind, token string) (*TokenClaims, error)
	// Prefix is the bearer prefix clients must use for the given role.
	Prefix(role UserRole) string
}

type ExternalIdentity struct {
	Email         string
	EmailVerified bool
	Name          string
}

type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*ExternalIdentity, error)
}
