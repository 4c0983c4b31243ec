package remote

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// Sealer encrypts archives on their way to the remote store and decrypts
// them on the way back, using an age X25519 key pair stored on disk. The
// recipient key is public; the identity key never leaves the machine.
type Sealer struct {
	recipientPath string
	identityPath  string
}

// NewSealer creates a Sealer reading its keys from the given paths.
func NewSealer(recipientPath, identityPath string) *Sealer {
	return &Sealer{recipientPath: recipientPath, identityPath: identityPath}
}

// Keygen generates a new X25519 key pair and writes both halves to disk.
// Existing keys are never overwritten.
func (s *Sealer) Keygen() error {
	if _, err := os.Stat(s.recipientPath); err == nil {
		return fmt.Errorf("recipient key already exists at %s", s.recipientPath)
	}
	if _, err := os.Stat(s.identityPath); err == nil {
		return fmt.Errorf("identity key already exists at %s", s.identityPath)
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return fmt.Errorf("generating key pair: %w", err)
	}

	for _, dir := range []string{filepath.Dir(s.recipientPath), filepath.Dir(s.identityPath)} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
	}

	if err := os.WriteFile(s.recipientPath, []byte(identity.Recipient().String()+"\n"), 0644); err != nil {
		return fmt.Errorf("writing recipient key: %w", err)
	}
	if err := os.WriteFile(s.identityPath, []byte(identity.String()+"\n"), 0600); err != nil {
		return fmt.Errorf("writing identity key: %w", err)
	}

	return nil
}

// Configured returns true if the recipient key exists, ie uploads should be
// sealed.
func (s *Sealer) Configured() bool {
	_, err := os.Stat(s.recipientPath)
	return err == nil
}

// Seal reads plaintext from r and writes age-encrypted ciphertext to w
// using the stored recipient key.
func (s *Sealer) Seal(r io.Reader, w io.Writer) error {
	recipient, err := s.loadRecipient()
	if err != nil {
		return err
	}

	encWriter, err := age.Encrypt(w, recipient)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}

	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("sealing archive: %w", err)
	}

	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing seal: %w", err)
	}

	return nil
}

// Unseal reads age-encrypted ciphertext from r and writes plaintext to w
// using the stored identity key.
func (s *Sealer) Unseal(r io.Reader, w io.Writer) error {
	identity, err := s.loadIdentity()
	if err != nil {
		return err
	}

	decReader, err := age.Decrypt(r, identity)
	if err != nil {
		return fmt.Errorf("unsealing archive: %w", err)
	}

	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("reading unsealed archive: %w", err)
	}

	return nil
}

// loadRecipient reads the recipient key from disk and parses it.
func (s *Sealer) loadRecipient() (age.Recipient, error) {
	data, err := os.ReadFile(s.recipientPath)
	if err != nil {
		return nil, fmt.Errorf("reading recipient key: %w", err)
	}

	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipient key: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in key file")
	}

	return recipients[0], nil
}

// loadIdentity reads the identity key from disk and parses it.
func (s *Sealer) loadIdentity() (age.Identity, error) {
	data, err := os.ReadFile(s.identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity key: %w", err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity key: %w", err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("no identities found in key file")
	}

	return identities[0], nil
}
