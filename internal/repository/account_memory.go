package repository

import (
	"bytes"
	"context"
	"sync"

	"campusdelivery/internal/models"
)

// MemoryCredentialStore keeps accounts in process. One mutex covers every
// record, which also serialises the read-modify-write updates.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	byID    map[string]models.Account
	byLogin map[string]string
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:    make(map[string]models.Account),
		byLogin: make(map[string]string),
	}
}

func (s *MemoryCredentialStore) Create(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byLogin[account.LoginID]; ok {
		return ErrLoginIDTaken
	}
	s.byID[account.ID] = cloneAccount(account)
	s.byLogin[account.LoginID] = account.ID
	return nil
}

func (s *MemoryCredentialStore) FindByID(_ context.Context, id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (s *MemoryCredentialStore) FindByLoginID(_ context.Context, loginID string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byLogin[loginID]
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return cloneAccount(s.byID[id]), nil
}

func (s *MemoryCredentialStore) ExistsByLoginID(_ context.Context, loginID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.byLogin[loginID]
	return ok, nil
}

func (s *MemoryCredentialStore) FindByResetTokenHash(_ context.Context, hash []byte) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.resetHolder(hash)
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return cloneAccount(s.byID[id]), nil
}

func (s *MemoryCredentialStore) Update(_ context.Context, id string, fn func(*models.Account) error) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return s.apply(id, fn)
}

func (s *MemoryCredentialStore) UpdateByResetTokenHash(_ context.Context, hash []byte, fn func(*models.Account) error) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.resetHolder(hash)
	if !ok {
		return models.Account{}, ErrAccountNotFound
	}
	return s.apply(id, fn)
}

// apply must be called with mu held. Identity fields are not writable.
func (s *MemoryCredentialStore) apply(id string, fn func(*models.Account) error) (models.Account, error) {
	current := s.byID[id]
	working := cloneAccount(current)
	if err := fn(&working); err != nil {
		return models.Account{}, err
	}

	current.PasswordHash = working.PasswordHash
	current.TwoFactor = working.TwoFactor
	current.Reset = working.Reset
	current.UpdatedAt = working.UpdatedAt
	s.byID[id] = cloneAccount(current)
	return cloneAccount(current), nil
}

func (s *MemoryCredentialStore) resetHolder(hash []byte) (string, bool) {
	if len(hash) == 0 {
		return "", false
	}
	for id, account := range s.byID {
		if account.Reset != nil && bytes.Equal(account.Reset.Hash, hash) {
			return id, true
		}
	}
	return "", false
}

func cloneAccount(a models.Account) models.Account {
	if a.Reset != nil {
		reset := *a.Reset
		reset.Hash = bytes.Clone(a.Reset.Hash)
		a.Reset = &reset
	}
	return a
}
