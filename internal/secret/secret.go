package secret

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"borgsched/internal/config"
)

type ErrorKind string

const (
	KindMissing           ErrorKind = "missing"
	KindUnreadable        ErrorKind = "unreadable"
	KindUnsafePermissions ErrorKind = "unsafe_permissions"
)

// Error identifies a secret by its reference (a path), never by its
// value. The Ref is safe to log.
type Error struct {
	Kind ErrorKind
	Ref  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credential %s: %s: %v", e.Kind, e.Ref, e.Err)
	}
	return fmt.Sprintf("credential %s: %s", e.Kind, e.Ref)
}

func (e *Error) Unwrap() error { return e.Err }

// Credentials is the minimal secret set one engine invocation needs.
// It lives on the stack of a single run and is never persisted.
type Credentials struct {
	RepoURL    string
	Passphrase string
	SSHKeyFile string
}

type Resolver interface {
	Resolve(repo *config.Repository) (*Credentials, error)
}

// FileResolver reads secrets from the files the repository references
// and refuses key material that other users could read. Checked every
// time, not just at startup: key files get rotated and re-provisioned
// underneath a long-running daemon.
type FileResolver struct{}

func (FileResolver) Resolve(repo *config.Repository) (*Credentials, error) {
	pass, err := readSecretFile(repo.PassphraseFile)
	if err != nil {
		return nil, err
	}
	if repo.SSHKeyFile != "" {
		if err := checkKeyFile(repo.SSHKeyFile); err != nil {
			return nil, err
		}
	}
	return &Credentials{
		RepoURL:    repo.URL,
		Passphrase: pass,
		SSHKeyFile: repo.SSHKeyFile,
	}, nil
}

func readSecretFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &Error{Kind: KindMissing, Ref: path}
		}
		return "", &Error{Kind: KindUnreadable, Ref: path, Err: err}
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return "", &Error{
			Kind: KindUnsafePermissions,
			Ref:  path,
			Err:  fmt.Errorf("mode %s, want 0600", mode),
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &Error{Kind: KindUnreadable, Ref: path, Err: err}
	}
	return strings.TrimSpace(string(data)), nil
}

// checkKeyFile enforces 0600-class permissions on the key and
// 0700-class on its directory before the key is handed to ssh.
func checkKeyFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Error{Kind: KindMissing, Ref: path}
		}
		return &Error{Kind: KindUnreadable, Ref: path, Err: err}
	}
	if mode := info.Mode().Perm(); mode&0077 != 0 {
		return &Error{
			Kind: KindUnsafePermissions,
			Ref:  path,
			Err:  fmt.Errorf("key mode %s, want 0600", mode),
		}
	}
	dir := filepath.Dir(path)
	dirInfo, err := os.Stat(dir)
	if err != nil {
		return &Error{Kind: KindUnreadable, Ref: dir, Err: err}
	}
	if mode := dirInfo.Mode().Perm(); mode&0077 != 0 {
		return &Error{
			Kind: KindUnsafePermissions,
			Ref:  dir,
			Err:  fmt.Errorf("key directory mode %s, want 0700", mode),
		}
	}
	return nil
}
