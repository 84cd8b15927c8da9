/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package sig

import (
	"sync"

	"github.com/hyperledger-labs/fsc-obligations/platform/common/services/logging"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/services/id/ecdsa"
	"github.com/hyperledger-labs/fsc-obligations/platform/view/view"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("view-sdk.sig")

// Signer is an interface which wraps the Sign method.
type Signer interface {
	// Sign signs message bytes and returns the signature or an error on failure.
	Sign(message []byte) ([]byte, error)
}

// Verifier is an interface which wraps the Verify method.
type Verifier interface {
	// Verify verifies the signature over the passed message.
	Verify(message, sigma []byte) error
}

// Service models a repository of sign and verify keys.
// Identities without a registered verifier are deserialized as PKIX encoded ECDSA keys.
type Service struct {
	lock      sync.RWMutex
	signers   map[string]Signer
	verifiers map[string]Verifier
}

func NewService() *Service {
	return &Service{
		signers:   map[string]Signer{},
		verifiers: map[string]Verifier{},
	}
}

// RegisterSigner binds the passed identity to the passed signer and verifier
func (s *Service) RegisterSigner(identity view.Identity, signer Signer, verifier Verifier) error {
	if signer == nil {
		return errors.New("invalid signer, nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	idHash := identity.UniqueID()
	if _, ok := s.signers[idHash]; ok {
		logger.Warnf("another signer bound to [%s]", identity)
		return nil
	}
	s.signers[idHash] = signer
	if verifier != nil {
		s.verifiers[idHash] = verifier
	}
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("signer for [%s] registered", identity)
	}
	return nil
}

// RegisterVerifier binds the passed identity to the passed verifier
func (s *Service) RegisterVerifier(identity view.Identity, verifier Verifier) error {
	if verifier == nil {
		return errors.New("invalid verifier, nil")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.verifiers[identity.UniqueID()] = verifier
	return nil
}

// IsMe returns true if a signer was ever registered for the passed identity
func (s *Service) IsMe(identity view.Identity) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.signers[identity.UniqueID()]
	return ok
}

// GetSigner returns the signer bound to the passed identity
func (s *Service) GetSigner(identity view.Identity) (Signer, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	signer, ok := s.signers[identity.UniqueID()]
	if !ok {
		return nil, errors.Errorf("signer not found for [%s]", identity)
	}
	return signer, nil
}

// GetVerifier returns the verifier bound to the passed identity
func (s *Service) GetVerifier(identity view.Identity) (Verifier, error) {
	s.lock.RLock()
	verifier, ok := s.verifiers[identity.UniqueID()]
	s.lock.RUnlock()
	if ok {
		return verifier, nil
	}

	_, v, err := ecdsa.NewIdentityFromBytes(identity)
	if err != nil {
		return nil, errors.WithMessagef(err, "verifier not found for [%s]", identity)
	}
	if err := s.RegisterVerifier(identity, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Sign signs content with the signer bound to identity
func (s *Service) Sign(identity view.Identity, content []byte) ([]byte, error) {
	signer, err := s.GetSigner(identity)
	if err != nil {
		return nil, err
	}
	return signer.Sign(content)
}

// Verify checks sigma over content against identity
func (s *Service) Verify(identity view.Identity, content, sigma []byte) error {
	verifier, err := s.GetVerifier(identity)
	if err != nil {
		return err
	}
	return verifier.Verify(content, sigma)
}
