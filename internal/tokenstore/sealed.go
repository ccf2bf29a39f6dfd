package tokenstore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Sealed encrypts values at rest with secretbox. Callers read back exactly what they stored;
// a value that fails to open (wrong key, tampering) reads as absent.
type Sealed struct {
	inner Store
	key   [32]byte
}

func NewSealed(inner Store, passphrase string) *Sealed {
	return &Sealed{inner: inner, key: sha256.Sum256([]byte(passphrase))}
}

func (s *Sealed) Save(ctx context.Context, token string) error {
	sealed, err := s.seal(token)
	if err != nil {
		return err
	}
	return s.inner.Save(ctx, sealed)
}

func (s *Sealed) Load(ctx context.Context) (string, error) {
	raw, err := s.inner.Load(ctx)
	if err != nil {
		return "", err
	}
	return s.open(raw)
}

func (s *Sealed) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}

func (s *Sealed) SaveUserID(ctx context.Context, id string) error {
	sealed, err := s.seal(id)
	if err != nil {
		return err
	}
	return s.inner.SaveUserID(ctx, sealed)
}

func (s *Sealed) LoadUserID(ctx context.Context) (string, error) {
	raw, err := s.inner.LoadUserID(ctx)
	if err != nil {
		return "", err
	}
	return s.open(raw)
}

func (s *Sealed) Put(ctx context.Context, flags Flags) error {
	token, err := s.seal(flags.Token)
	if err != nil {
		return err
	}
	id, err := s.seal(flags.UserID)
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, Flags{Token: token, UserID: id})
}

func (s *Sealed) Snapshot(ctx context.Context) (Flags, error) {
	raw, err := s.inner.Snapshot(ctx)
	if err != nil {
		return Flags{}, err
	}

	var flags Flags
	if raw.Token != "" {
		if flags.Token, err = s.open(raw.Token); err != nil && !errors.Is(err, ErrAbsent) {
			return Flags{}, err
		}
	}
	if raw.UserID != "" {
		if flags.UserID, err = s.open(raw.UserID); err != nil && !errors.Is(err, ErrAbsent) {
			return Flags{}, err
		}
	}
	return flags, nil
}

func (s *Sealed) Close() error {
	return s.inner.Close()
}

func (s *Sealed) seal(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

func (s *Sealed) open(value string) (string, error) {
	box, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(box) < nonceSize+secretbox.Overhead {
		return "", ErrAbsent
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])

	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", ErrAbsent
	}
	return string(plain), nil
}
