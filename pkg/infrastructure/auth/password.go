package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"ecommerce/pkg/domain/model"
)

type bcryptHasher struct {
	cost int
}

func NewPasswordManager(cost int) model.PasswordManager {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(plainText string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plainText), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "hash")
	}
	return string(hashed), nil
}

func (h *bcryptHasher) Check(hashed, plainText string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plainText))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, errors.Wrap(err, "compare hash")
	}
}

type otpGenerator struct {
	digits int
}

func NewOtpGenerator() model.OtpGenerator {
	return &otpGenerator{digits: 6}
}

// Generate returns a zero padded random code from crypto/rand.
func (g *otpGenerator) Generate() (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(g.digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", errors.Wrap(err, "generate otp")
	}
	return fmt.Sprintf("%0*d", g.digits, n.Int64()), nil
}
