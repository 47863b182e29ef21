package security

import "golang.org/x/crypto/bcrypt"

const DefaultBcryptCost = 12

// Passwords hashes and checks passwords with bcrypt at a fixed cost.
type Passwords struct {
	cost  int
	dummy []byte // compared against for unknown users
}

func NewPasswords(cost int) *Passwords {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	// cost is in range and the input is short, so this cannot fail
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	return &Passwords{cost: cost, dummy: dummy}
}

func (p *Passwords) Hash(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), p.cost)
	return string(h), err
}

func (p *Passwords) Check(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// CheckMissing burns the same bcrypt work as Check for a user that does not
// exist and always reports false.
func (p *Passwords) CheckMissing(plain string) bool {
	_ = bcrypt.CompareHashAndPassword(p.dummy, []byte(plain))
	return false
}
