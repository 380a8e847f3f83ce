// Package users provisions profile documents. Provisioning is
// exactly-once-effective: the first call creates, every later call for the
// same account reports the existing document.
package users

import (
	"errors"
	"fmt"

	"birdscout-go/internal/appwrite"
	"birdscout-go/internal/logger"
	"birdscout-go/internal/types"
)

// ErrMissingAccountID is the validation fault for a provisioning request
// without an account identifier. Raised before any I/O.
var ErrMissingAccountID = errors.New("missing userId")

// Store is the slice of persistence the provisioner needs.
type Store interface {
	GetUser(accountID string) (types.User, error)
	CreateUser(accountID string, u types.User) error
}

type Provisioner struct {
	store Store
}

func NewProvisioner(s Store) *Provisioner {
	return &Provisioner{store: s}
}

// lookup is the typed outcome of the existence check. Keeping the three
// cases distinct stops a transient store outage from being read as "absent"
// and answered with a blind create.
type lookup int

const (
	lookupFound lookup = iota
	lookupNotFound
	lookupFailed
)

// Ensure makes sure a profile document exists for the account and reports
// whether this call created it.
func (p *Provisioner) Ensure(accountID, email string) (types.Response, error) {
	if accountID == "" {
		return types.Response{}, ErrMissingAccountID
	}
	log := logger.New().WithField("component", "users").WithField("account_id", accountID)

	outcome, err := p.find(accountID)
	switch outcome {
	case lookupFound:
		log.Info("user doc already exists")
		return types.Response{Success: true, Message: "User doc exists"}, nil
	case lookupFailed:
		return types.Response{}, fmt.Errorf("user lookup: %w", err)
	}

	u := types.User{Email: email, Role: types.DefaultRole}
	if err := p.store.CreateUser(accountID, u); err != nil {
		return types.Response{}, err
	}
	log.Info("user doc created")
	return types.Response{Success: true, Message: "User doc created"}, nil
}

func (p *Provisioner) find(accountID string) (lookup, error) {
	_, err := p.store.GetUser(accountID)
	switch {
	case err == nil:
		return lookupFound, nil
	case appwrite.IsNotFound(err):
		return lookupNotFound, nil
	default:
		return lookupFailed, err
	}
}
