package github

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// appJWTLifetime is the GitHub Apps maximum JWT validity.
const appJWTLifetime = 10 * time.Minute

// initTokenAuth configures personal-token authentication, resolving the token
// from the gh CLI when none is provided.
func (c *Client) initTokenAuth(ctx context.Context, token string) error {
	if token == "" {
		cmd := exec.CommandContext(ctx, "gh", "auth", "token")
		output, err := cmd.Output()
		if err != nil {
			return fmt.Errorf("no token provided and gh auth token failed: %w", err)
		}
		token = strings.TrimSpace(string(output))
	}
	if token == "" {
		return errors.New("github: empty token")
	}
	c.token = token
	return nil
}

// initAppAuth loads the App private key and mints the first JWT.
func (c *Client) initAppAuth(appID, keyPath string) error {
	if keyPath == "" {
		return errors.New("github: app auth requires a private key path")
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("reading app private key: %w", err)
	}
	c.isAppAuth = true
	c.appID = appID
	c.privateKey = key
	return c.refreshJWTIfNeeded()
}

// refreshJWTIfNeeded re-mints the App JWT when it is within a minute of
// expiry.
func (c *Client) refreshJWTIfNeeded() error {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if time.Until(c.tokenExpiry) > time.Minute {
		return nil
	}
	token, expiry, err := generateJWT(c.appID, c.privateKey)
	if err != nil {
		return err
	}
	c.token = token
	c.tokenExpiry = expiry
	return nil
}

// generateJWT mints a short-lived JWT for GitHub App authentication.
func generateJWT(appID string, privateKey []byte) (string, time.Time, error) {
	block, _ := pem.Decode(privateKey)
	if block == nil {
		return "", time.Time{}, errors.New("failed to parse PEM block containing the private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		// Try PKCS8 format if PKCS1 fails.
		parsedKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to parse private key: %w", err)
		}
		var ok bool
		key, ok = parsedKey.(*rsa.PrivateKey)
		if !ok {
			return "", time.Time{}, errors.New("private key is not RSA")
		}
	}

	now := time.Now()
	expiry := now.Add(appJWTLifetime)
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": expiry.Unix(),
		"iss": appID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiry, nil
}
