package local

import (
	"os"
	"time"

	"github.com/jrsteele09/go-truckdocs/users"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SeedUser is one account in the seed file. Either Password or PasswordHash must be set.
type SeedUser struct {
	Email        string    `yaml:"email"`
	Password     string    `yaml:"password,omitempty"`
	PasswordHash string    `yaml:"password_hash,omitempty"`
	Disabled     bool      `yaml:"disabled,omitempty"`
	JoinedAt     time.Time `yaml:"joined_at,omitempty"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

// LoadSeedFile parses a YAML file of the form `users: [{email, password}]`.
func LoadSeedFile(path string) ([]SeedUser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[LoadSeedFile] ReadFile")
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "[LoadSeedFile] yaml.Unmarshal")
	}
	return f.Users, nil
}

// Seed adds the users to the directory's repo, hashing plaintext passwords.
func (d *Directory) Seed(seed []SeedUser) error {
	for _, s := range seed {
		if !validEmail(s.Email) {
			return errors.Errorf("[Directory.Seed] invalid email %q", s.Email)
		}
		hash := s.PasswordHash
		if hash == "" {
			if err := users.ValidatePasswordStrength(s.Password); err != nil {
				return errors.Wrapf(err, "[Directory.Seed] %s", s.Email)
			}
			var err error
			if hash, err = users.HashPassword(s.Password); err != nil {
				return errors.Wrapf(err, "[Directory.Seed] HashPassword %s", s.Email)
			}
		}
		joined := s.JoinedAt
		if joined.IsZero() {
			joined = d.nowTime()
		}
		if err := d.users.Upsert(&users.User{
			Email:        s.Email,
			PasswordHash: hash,
			DateJoined:   joined,
			Disabled:     s.Disabled,
		}); err != nil {
			return errors.Wrapf(err, "[Directory.Seed] Upsert %s", s.Email)
		}
	}
	return nil
}
