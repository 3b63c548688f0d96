package auth

import (
	"errors"
	"fmt"

	"github.com/momohouse/pos/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidPasscode = errors.New("invalid passcode")

// Passcodes holds one bcrypt hash per role. It is built once at startup and
// read-only afterwards.
type Passcodes struct {
	hashes map[string][]byte
}

func NewPasscodes() *Passcodes {
	return &Passcodes{hashes: make(map[string][]byte)}
}

// Set hashes plain and stores it for role. An empty passcode disables the
// role.
func (p *Passcodes) Set(role, plain string) error {
	if plain == "" {
		delete(p.hashes, role)
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash %s passcode: %w", role, err)
	}
	p.hashes[role] = hash
	return nil
}

// SetHash stores an existing bcrypt hash for role.
func (p *Passcodes) SetHash(role, hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("%s passcode hash: %w", role, err)
	}
	p.hashes[role] = []byte(hash)
	return nil
}

// Match returns the role whose passcode equals passcode. Admin is checked
// before staff so a shared code grants the higher role.
func (p *Passcodes) Match(passcode string) (string, error) {
	if passcode == "" {
		return "", ErrInvalidPasscode
	}
	for _, role := range []string{enum.RoleAdmin, enum.RoleStaff} {
		hash, ok := p.hashes[role]
		if !ok {
			continue
		}
		if bcrypt.CompareHashAndPassword(hash, []byte(passcode)) == nil {
			return role, nil
		}
	}
	return "", ErrInvalidPasscode
}
