// Package auth resolves go-git transport credentials for remote URLs.
package auth

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// SSHAuthProvider supplies SSH credentials for ssh remotes.
// Non-SSH remotes (file, https) get no credentials.
type SSHAuthProvider struct {
	// PrivateKeyPath is the path to the SSH private key file.
	PrivateKeyPath string

	// PrivateKey contains the SSH private key as bytes.
	PrivateKey []byte

	// Passphrase for encrypted private keys.
	Passphrase string

	// Username overrides the user in the remote URL; "git" when both are empty.
	Username string

	// UseSSHAgent enables SSH agent integration.
	UseSSHAgent bool

	// HostKeyCallback verifies host keys. When nil go-git checks ~/.ssh/known_hosts.
	HostKeyCallback gossh.HostKeyCallback
}

// NewSSHKeyProvider creates an SSH provider using a private key file.
func NewSSHKeyProvider(keyPath, passphrase string) *SSHAuthProvider {
	return &SSHAuthProvider{
		PrivateKeyPath: keyPath,
		Passphrase:     passphrase,
	}
}

// NewSSHKeyBytesProvider creates an SSH provider using private key bytes.
func NewSSHKeyBytesProvider(keyBytes []byte, passphrase string) *SSHAuthProvider {
	return &SSHAuthProvider{
		PrivateKey: keyBytes,
		Passphrase: passphrase,
	}
}

// NewSSHAgentProvider creates an SSH provider that uses SSH agent.
func NewSSHAgentProvider() *SSHAuthProvider {
	return &SSHAuthProvider{
		UseSSHAgent: true,
	}
}

// WithUsername sets the SSH username.
func (p *SSHAuthProvider) WithUsername(username string) *SSHAuthProvider {
	p.Username = username
	return p
}

// WithHostKeyCallback sets the host key verification callback.
func (p *SSHAuthProvider) WithHostKeyCallback(callback gossh.HostKeyCallback) *SSHAuthProvider {
	p.HostKeyCallback = callback
	return p
}

// Method returns the authentication method for the given remote URL.
//
//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func (p *SSHAuthProvider) Method(remoteURL string) (transport.AuthMethod, error) {
	user, isSSH, err := parseSSHURL(remoteURL)
	if err != nil {
		return nil, err
	}
	if !isSSH {
		return nil, nil
	}

	if p.Username != "" {
		user = p.Username
	}
	if user == "" {
		user = "git"
	}

	switch {
	case p.UseSSHAgent:
		return buildAgentAuth(p, user)
	case p.PrivateKeyPath != "":
		return buildFileAuth(p, user)
	case len(p.PrivateKey) > 0:
		return buildBytesAuth(p, user)
	}

	return nil, fmt.Errorf("no SSH credentials configured")
}

// parseSSHURL reports whether remoteURL is reached over SSH and the user it names.
// Both ssh://user@host/path and scp-like user@host:path forms are recognized.
func parseSSHURL(remoteURL string) (string, bool, error) {
	if !strings.Contains(remoteURL, "://") {
		at := strings.Index(remoteURL, "@")
		colon := strings.Index(remoteURL, ":")
		if colon > 0 && (at < 0 || at < colon) && !strings.HasPrefix(remoteURL, "/") {
			user := ""
			if at > 0 {
				user = remoteURL[:at]
			}
			return user, true, nil
		}
		// Plain filesystem path.
		return "", false, nil
	}

	parsed, err := url.Parse(remoteURL)
	if err != nil {
		return "", false, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "ssh" && parsed.Scheme != "git+ssh" {
		return "", false, nil
	}
	return parsed.User.Username(), true, nil
}

//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func buildAgentAuth(p *SSHAuthProvider, user string) (transport.AuthMethod, error) {
	auth, err := ssh.NewSSHAgentAuth(user)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH agent auth: %w", err)
	}
	if p.HostKeyCallback != nil {
		auth.HostKeyCallback = p.HostKeyCallback
	}
	return auth, nil
}

//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func buildFileAuth(p *SSHAuthProvider, user string) (transport.AuthMethod, error) {
	if _, err := os.Stat(p.PrivateKeyPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("SSH private key file does not exist: %s", p.PrivateKeyPath)
	}
	auth, err := ssh.NewPublicKeysFromFile(user, p.PrivateKeyPath, p.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from file: %w", err)
	}
	if p.HostKeyCallback != nil {
		auth.HostKeyCallback = p.HostKeyCallback
	}
	return auth, nil
}

//nolint:ireturn // go-git requires returning transport.AuthMethod interface
func buildBytesAuth(p *SSHAuthProvider, user string) (transport.AuthMethod, error) {
	auth, err := ssh.NewPublicKeys(user, p.PrivateKey, p.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from bytes: %w", err)
	}
	if p.HostKeyCallback != nil {
		auth.HostKeyCallback = p.HostKeyCallback
	}
	return auth, nil
}
