package server

import (
	"context"
	"errors"
)

// CredentialVerifier checks a username and password. It returns
// ErrInvalidCredentials for a bad pair and ErrAuthUnavailable when no
// account store is reachable.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) error
}

type CredentialVerifierFunc func(ctx context.Context, username, password string) error

func (f CredentialVerifierFunc) Verify(ctx context.Context, username, password string) error {
	return f(ctx, username, password)
}

func (s *Server) verifyCredentials(ctx context.Context, username, password string) error {
	if s.verifier == nil {
		return ErrAuthUnavailable
	}
	err := s.verifier.Verify(ctx, username, password)
	if err == nil {
		return nil
	}
	var known *Error
	if errors.As(err, &known) {
		return known
	}
	s.logger.Error("verify credentials failed", "username", username, "error", err)
	return ErrAuthUnavailable
}
