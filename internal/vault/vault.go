package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "windowcapd"

// ipcAuthTokenKey is the single secret this vault manages: the shared
// ingestion-socket token. The socket does not check connecting clients
// for it; the daemon only resolves it at startup.
const ipcAuthTokenKey = "ipc-auth-token"

// Vault provides secure storage for the IPC auth token using the OS
// keychain, with fallback to an environment variable.
type Vault struct{}

// New creates a new Vault instance.
func New() *Vault {
	return &Vault{}
}

// SetToken stores the IPC auth token in the OS keychain.
func (v *Vault) SetToken(token string) error {
	return keyring.Set(serviceName, ipcAuthTokenKey, token)
}

// Token retrieves the IPC auth token. It first checks the OS keychain,
// then falls back to the WINDOWCAPD_IPC_TOKEN environment variable.
func (v *Vault) Token() (string, error) {
	secret, err := keyring.Get(serviceName, ipcAuthTokenKey)
	if err == nil && secret != "" {
		return secret, nil
	}

	const envKey = "WINDOWCAPD_IPC_TOKEN"
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}

	return "", fmt.Errorf("no IPC auth token found: not in keychain and %s not set", envKey)
}

// DeleteToken removes the IPC auth token from the OS keychain.
func (v *Vault) DeleteToken() error {
	return keyring.Delete(serviceName, ipcAuthTokenKey)
}

// ResolveKeyRef parses a key reference and retrieves the corresponding
// secret. Supported formats:
//   - "keyring://windowcapd/<key>" (preferred)
//   - "keychain:windowcapd/<key>" (legacy)
//   - "env:VARIABLE_NAME" (environment variable)
//   - "file:///path/to/key" (plain-text file)
func (v *Vault) ResolveKeyRef(keyRef string) (string, error) {
	// Format 1: keyring://windowcapd/<key>
	if strings.HasPrefix(keyRef, "keyring://") {
		path := strings.TrimPrefix(keyRef, "keyring://")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://windowcapd/<key>\")", keyRef)
		}
		return v.get(parts[1])
	}

	// Format 2: keychain:windowcapd/<key> (legacy)
	if strings.HasPrefix(keyRef, "keychain:") {
		path := strings.TrimPrefix(keyRef, "keychain:")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference path: %q (expected \"windowcapd/<key>\")", path)
		}
		return v.get(parts[1])
	}

	// Format 3: env:VARIABLE_NAME
	if strings.HasPrefix(keyRef, "env:") {
		envVar := strings.TrimPrefix(keyRef, "env:")
		if val := os.Getenv(envVar); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("environment variable %q is not set", envVar)
	}

	// Format 4: file:///path/to/key
	if strings.HasPrefix(keyRef, "file://") {
		filePath := strings.TrimPrefix(keyRef, "file://")
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("reading key file %q: %w", filePath, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("key file %q is empty", filePath)
		}
		return key, nil
	}

	return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://windowcapd/<key>\", \"keychain:windowcapd/<key>\", \"env:VARIABLE_NAME\", or \"file:///path/to/key\")", keyRef)
}

// get reads a named secret from the OS keychain under serviceName.
func (v *Vault) get(name string) (string, error) {
	secret, err := keyring.Get(serviceName, name)
	if err != nil {
		return "", fmt.Errorf("reading %q from keychain: %w", name, err)
	}
	if secret == "" {
		return "", fmt.Errorf("secret %q is empty in keychain", name)
	}
	return secret, nil
}
