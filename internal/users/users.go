package users

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"stockbot/internal/permission"
)

var (
	ErrMissing            = errors.New("users: user directory not found")
	ErrMalformed          = errors.New("users: malformed user directory")
	ErrInvalidCredentials = errors.New("users: invalid username or password")
)

// User is one entry of the directory. Password holds either a bcrypt hash or,
// in legacy files, the plaintext password.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"rol"`
}

type document struct {
	Users []User `json:"usuarios"`
}

// Directory is the in-memory user list, loaded once at startup.
type Directory struct {
	users     map[string]User
	plaintext int
}

// Load reads the directory file. A missing file is fatal for the caller: with
// no users nobody can authenticate.
func Load(path string) (*Directory, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	d := &Directory{users: make(map[string]User, len(doc.Users))}
	for i, u := range doc.Users {
		u.Username = strings.TrimSpace(u.Username)
		if u.Username == "" {
			return nil, fmt.Errorf("%w: %s: entry %d has no username", ErrMalformed, path, i)
		}
		if _, dup := d.users[u.Username]; dup {
			return nil, fmt.Errorf("%w: %s: duplicate username %q", ErrMalformed, path, u.Username)
		}
		if !permission.Known(u.Role) {
			log.Printf("users: %q has unknown role %q; every operation will be denied", u.Username, u.Role)
		}
		if !isHash(u.Password) {
			d.plaintext++
		}
		d.users[u.Username] = u
	}
	if d.plaintext > 0 {
		log.Printf("users: %d plaintext password(s) in %s; replace them with bcrypt hashes (stockbot-cli hash)", d.plaintext, path)
	}
	return d, nil
}

// Len is the number of users.
func (d *Directory) Len() int { return len(d.users) }

// Authenticate checks the credentials and returns the user without its password.
func (d *Directory) Authenticate(username, password string) (User, error) {
	u, ok := d.users[strings.TrimSpace(username)]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	if isHash(u.Password) {
		if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
			return User{}, ErrInvalidCredentials
		}
	} else if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 {
		return User{}, ErrInvalidCredentials
	}
	u.Password = ""
	return u, nil
}

// HashPassword returns a bcrypt hash suitable for the directory file.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
