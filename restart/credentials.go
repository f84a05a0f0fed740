package restart

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// On-disk format of the credential file: one bcrypt hash per actor allowed to restart the bot.
//
//	credentials:
//	  - actor: "123456789012345678"
//	    hash: "$2a$10$..."
type CredentialFile struct {
	Credentials []Credential `yaml:"credentials"`
}

type Credential struct {
	Actor string `yaml:"actor"`
	Hash  string `yaml:"hash"`
}

// Verifies per-actor secrets. Safe for concurrent use once loaded.
type Credentials struct {
	hashes map[string][]byte
}

func LoadCredentials(path string) (*Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}
	return ParseCredentials(raw)
}

func ParseCredentials(raw []byte) (*Credentials, error) {
	var cf CredentialFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parsing credential file: %w", err)
	}
	creds := &Credentials{hashes: make(map[string][]byte, len(cf.Credentials))}
	for i, c := range cf.Credentials {
		if c.Actor == "" || c.Hash == "" {
			return nil, fmt.Errorf("credential %d: actor and hash are required", i)
		}
		if _, err := bcrypt.Cost([]byte(c.Hash)); err != nil {
			return nil, fmt.Errorf("credential for %s: %w", c.Actor, err)
		}
		if _, dupe := creds.hashes[c.Actor]; dupe {
			return nil, fmt.Errorf("duplicate credential for %s", c.Actor)
		}
		creds.hashes[c.Actor] = []byte(c.Hash)
	}
	return creds, nil
}

// Reports whether the secret matches the actor's own credential. Actors without a credential never match.
func (c *Credentials) Verify(actor, secret string) bool {
	hash, ok := c.hashes[actor]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}

func (c *Credentials) Len() int {
	return len(c.hashes)
}

// Produces a hash suitable for the credential file.
func HashSecret(secret string, cost int) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("empty secret")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Renders a single-entry credential file, for the hash-credential command.
func MarshalCredential(actor, hash string) ([]byte, error) {
	return yaml.Marshal(CredentialFile{Credentials: []Credential{{Actor: actor, Hash: hash}}})
}
