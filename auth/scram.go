package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// ScramAuthenticator implements Authenticator for SCRAM-SHA-256,
// promoted from the teacher's examples/scram_auth/scram_authenticator.go
// into tested library code. It runs the standard client-first /
// server-first / client-final exchange without channel binding
// (gs2-header "n,,").
type ScramAuthenticator struct {
	username string
	password string

	clientNonce string
	serverNonce string
	authMsg     string
}

// NewScramAuthenticator returns a SCRAM-SHA-256 Authenticator for the
// given credentials.
func NewScramAuthenticator(username, password string) *ScramAuthenticator {
	return &ScramAuthenticator{username: username, password: password}
}

func (s *ScramAuthenticator) Method() string { return "SCRAM-SHA-256" }

// InitialData produces the client-first-message: n,,n=user,r=nonce.
func (s *ScramAuthenticator) InitialData() ([]byte, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("auth: generate client nonce: %w", err)
	}
	s.clientNonce = base64.RawStdEncoding.EncodeToString(nonce)

	msg := fmt.Sprintf("n,,n=%s,r=%s", s.username, s.clientNonce)
	s.authMsg = msg[3:] // client-first-message-bare, without the gs2-header
	return []byte(msg), nil
}

// HandleChallenge processes the server-first-message and returns the
// client-final-message.
func (s *ScramAuthenticator) HandleChallenge(data []byte, reasonCode uint8) ([]byte, error) {
	parts := parseSCRAMMessage(string(data))

	r, ok := parts["r"]
	if !ok || !strings.HasPrefix(r, s.clientNonce) {
		return nil, fmt.Errorf("auth: server nonce does not extend client nonce")
	}
	s.serverNonce = r

	saltStr, ok := parts["s"]
	if !ok {
		return nil, fmt.Errorf("auth: server-first-message missing salt")
	}
	salt, err := base64.StdEncoding.DecodeString(saltStr)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid salt encoding: %w", err)
	}

	iterStr, ok := parts["i"]
	if !ok {
		return nil, fmt.Errorf("auth: server-first-message missing iteration count")
	}
	iter, err := strconv.Atoi(iterStr)
	if err != nil || iter < 1 {
		return nil, fmt.Errorf("auth: invalid iteration count %q", iterStr)
	}

	// AuthMessage = client-first-message-bare + "," + server-first-message + "," + client-final-message-without-proof
	s.authMsg += "," + string(data) + ",c=biws,r=" + s.serverNonce

	saltedPassword := pbkdf2.Key([]byte(s.password), salt, iter, sha256.Size, sha256.New)
	clientKey := hmacSum(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSum(storedKey[:], []byte(s.authMsg))

	clientProof := make([]byte, len(clientKey))
	for i := range clientKey {
		clientProof[i] = clientKey[i] ^ clientSignature[i]
	}

	finalMsg := fmt.Sprintf("c=biws,r=%s,p=%s", s.serverNonce, base64.StdEncoding.EncodeToString(clientProof))
	return []byte(finalMsg), nil
}

// Complete verifies nothing further; a production verifier would check
// the server's ServerSignature = HMAC(ServerKey, AuthMessage) here.
func (s *ScramAuthenticator) Complete() error { return nil }

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func parseSCRAMMessage(msg string) map[string]string {
	m := make(map[string]string)
	for _, part := range strings.Split(msg, ",") {
		if len(part) > 2 && part[1] == '=' {
			m[part[:1]] = part[2:]
		}
	}
	return m
}
