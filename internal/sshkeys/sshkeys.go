// Package sshkeys manages restricted SSH keys in the user's
// authorized_keys file. Keys created here carry a "fileglancer" comment
// and the restrict,pty options, so only those entries are listed or
// touched.
package sshkeys

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/JaneliaSciComp/fileglancer-server/internal/config"
	"github.com/JaneliaSciComp/fileglancer-server/internal/logging"
	"github.com/JaneliaSciComp/fileglancer-server/internal/model"
	"go.uber.org/zap"
)

const (
	managedComment = "fileglancer"
	keyOptions     = "restrict,pty"
)

// ErrKeyNotFound is returned when no managed entry matches a
// fingerprint.
var ErrKeyNotFound = errors.New("no managed key with that fingerprint")

// Manager operates on one .ssh directory.
type Manager struct {
	dir string
	log *logging.Logger
}

// NewManager creates a manager for the given .ssh directory, expanding
// a leading ~.
func NewManager(dir string, log *logging.Logger) *Manager {
	return &Manager{dir: config.ExpandHome(dir), log: log}
}

// GeneratedKey is the result of key generation. PrivateKey is handed to
// the caller exactly once and never persisted.
type GeneratedKey struct {
	Info       model.SSHKeyInfo
	PrivateKey []byte
}

// Wipe zeroes the private key material.
func (g *GeneratedKey) Wipe() {
	for i := range g.PrivateKey {
		g.PrivateKey[i] = 0
	}
	g.PrivateKey = nil
}

// List returns the managed keys found in authorized_keys.
func (m *Manager) List() ([]model.SSHKeyInfo, error) {
	lines, err := m.readAuthorizedKeys()
	if err != nil {
		return nil, err
	}

	keys := make([]model.SSHKeyInfo, 0, len(lines))
	for _, line := range lines {
		info, ok := parseManagedLine(line)
		if ok {
			keys = append(keys, info)
		}
	}
	m.log.Info("listed managed ssh keys", zap.Int("count", len(keys)), zap.String("dir", m.dir))
	return keys, nil
}

// Generate creates a new ed25519 keypair, authorizes the public key
// with restricted options, and returns the private key.
func (m *Manager) Generate() (*GeneratedKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, managedComment)
	if err != nil {
		return nil, fmt.Errorf("encoding private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(block)

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("encoding public key: %w", err)
	}
	fingerprint := ssh.FingerprintSHA256(sshPub)
	pubLine := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))

	if err := m.authorize(pubLine, fingerprint); err != nil {
		return nil, err
	}

	return &GeneratedKey{
		Info: model.SSHKeyInfo{
			KeyType:     sshPub.Type(),
			Fingerprint: fingerprint,
			Comment:     managedComment,
		},
		PrivateKey: privPEM,
	}, nil
}

// Remove deletes the managed entry with the given fingerprint.
func (m *Manager) Remove(fingerprint string) error {
	lines, err := m.readAuthorizedKeys()
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(lines))
	removed := false
	for _, line := range lines {
		info, ok := parseManagedLine(line)
		if ok && info.Fingerprint == fingerprint {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, fingerprint)
	}
	return m.writeAuthorizedKeys(kept)
}

// authorize appends a restricted entry for the public key unless a key
// with the same fingerprint is already managed.
func (m *Manager) authorize(pubLine, fingerprint string) error {
	if err := m.ensureDir(); err != nil {
		return err
	}

	lines, err := m.readAuthorizedKeys()
	if err != nil {
		return err
	}
	for _, line := range lines {
		info, ok := parseManagedLine(line)
		if ok && info.Fingerprint == fingerprint {
			m.log.Info("key already authorized", zap.String("fingerprint", fingerprint))
			return nil
		}
	}

	entry := fmt.Sprintf("%s %s %s", keyOptions, pubLine, managedComment)
	lines = append(lines, entry)

	// Keep a backup of the previous file before rewriting.
	path := m.authorizedKeysPath()
	if data, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", data, 0600); err != nil {
			m.log.Warn("failed to back up authorized_keys", zap.Error(err))
		}
	}

	if err := m.writeAuthorizedKeys(lines); err != nil {
		return err
	}
	m.log.Info("added restricted key to authorized_keys", zap.String("fingerprint", fingerprint))
	return nil
}

func (m *Manager) authorizedKeysPath() string {
	return filepath.Join(m.dir, "authorized_keys")
}

func (m *Manager) ensureDir() error {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("creating ssh directory: %w", err)
	}
	// Tighten permissions in case the directory pre-existed.
	if stat, err := os.Stat(m.dir); err == nil && stat.Mode().Perm() != 0700 {
		if err := os.Chmod(m.dir, 0700); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) readAuthorizedKeys() ([]string, error) {
	data, err := os.ReadFile(m.authorizedKeysPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

func (m *Manager) writeAuthorizedKeys(lines []string) error {
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(m.authorizedKeysPath(), []byte(content), 0600); err != nil {
		return fmt.Errorf("writing authorized_keys: %w", err)
	}
	return os.Chmod(m.authorizedKeysPath(), 0600)
}

// parseManagedLine parses one authorized_keys line and reports it only
// when the comment marks it as managed.
func parseManagedLine(line string) (model.SSHKeyInfo, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, managedComment) {
		return model.SSHKeyInfo{}, false
	}
	pub, comment, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
	if err != nil {
		return model.SSHKeyInfo{}, false
	}
	if !strings.Contains(comment, managedComment) {
		return model.SSHKeyInfo{}, false
	}
	return model.SSHKeyInfo{
		KeyType:     pub.Type(),
		Fingerprint: ssh.FingerprintSHA256(pub),
		Comment:     comment,
	}, true
}
