package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/pbkdf2"
)

// serverFirstMessage emulates just enough of a SCRAM server to drive
// ScramAuthenticator through HandleChallenge: it echoes the client
// nonce with its own suffix and picks a salt/iteration count, which is
// all a real server's server-first-message would also carry.
func serverFirstMessage(clientFirstBare, serverNonceSuffix string, salt []byte, iter int) string {
	parts := parseSCRAMMessage(clientFirstBare)
	return fmt.Sprintf("r=%s%s,s=%s,i=%d", parts["r"], serverNonceSuffix, base64.StdEncoding.EncodeToString(salt), iter)
}

func TestScramAuthenticatorMethod(t *testing.T) {
	a := NewScramAuthenticator("alice", "hunter2")
	if a.Method() != "SCRAM-SHA-256" {
		t.Fatalf("Method() = %q, want SCRAM-SHA-256", a.Method())
	}
}

func TestScramAuthenticatorInitialData(t *testing.T) {
	a := NewScramAuthenticator("alice", "hunter2")
	data, err := a.InitialData()
	if err != nil {
		t.Fatalf("InitialData: %v", err)
	}
	msg := string(data)
	if msg[:5] != "n,,n=" {
		t.Fatalf("InitialData() = %q, want gs2-header prefix n,,n=", msg)
	}
	if a.clientNonce == "" {
		t.Fatal("clientNonce was not recorded")
	}
}

func TestScramAuthenticatorFullExchange(t *testing.T) {
	password := "hunter2"
	salt := []byte("fixed-test-salt")
	iter := 4096

	a := NewScramAuthenticator("alice", password)
	clientFirst, err := a.InitialData()
	if err != nil {
		t.Fatalf("InitialData: %v", err)
	}

	serverFirst := serverFirstMessage(a.authMsg, "-server-suffix", salt, iter)

	finalMsg, err := a.HandleChallenge([]byte(serverFirst), 0x18)
	if err != nil {
		t.Fatalf("HandleChallenge: %v", err)
	}

	parts := parseSCRAMMessage(string(finalMsg))
	if parts["c"] != "biws" {
		t.Fatalf("final message channel-binding = %q, want biws", parts["c"])
	}
	if parts["r"] != a.serverNonce {
		t.Fatalf("final message nonce = %q, want %q", parts["r"], a.serverNonce)
	}

	// Recompute the expected proof the way a server would, and check it
	// matches what the client sent.
	authMsg := string(clientFirst[3:]) + "," + serverFirst + ",c=biws,r=" + a.serverNonce
	saltedPassword := pbkdf2.Key([]byte(password), salt, iter, sha256.Size, sha256.New)
	clientKey := hmacSum(saltedPassword, []byte("Client Key"))
	storedKey := sha256.Sum256(clientKey)
	clientSignature := hmacSum(storedKey[:], []byte(authMsg))
	wantProof := make([]byte, len(clientKey))
	for i := range clientKey {
		wantProof[i] = clientKey[i] ^ clientSignature[i]
	}
	wantProofStr := base64.StdEncoding.EncodeToString(wantProof)

	if parts["p"] != wantProofStr {
		t.Fatalf("client proof = %q, want %q", parts["p"], wantProofStr)
	}

	if err := a.Complete(); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestScramAuthenticatorRejectsMismatchedNonce(t *testing.T) {
	a := NewScramAuthenticator("alice", "hunter2")
	if _, err := a.InitialData(); err != nil {
		t.Fatalf("InitialData: %v", err)
	}

	badFirst := "r=completely-different-nonce,s=" + base64.StdEncoding.EncodeToString([]byte("salt")) + ",i=4096"
	if _, err := a.HandleChallenge([]byte(badFirst), 0x18); err == nil {
		t.Fatal("HandleChallenge succeeded with a server nonce that does not extend the client nonce")
	}
}

func TestScramAuthenticatorRejectsMissingFields(t *testing.T) {
	a := NewScramAuthenticator("alice", "hunter2")
	if _, err := a.InitialData(); err != nil {
		t.Fatalf("InitialData: %v", err)
	}

	missingSalt := "r=" + a.clientNonce + "x,i=4096"
	if _, err := a.HandleChallenge([]byte(missingSalt), 0x18); err == nil {
		t.Fatal("HandleChallenge succeeded with no salt")
	}

	missingIter := "r=" + a.clientNonce + "x,s=" + base64.StdEncoding.EncodeToString([]byte("salt"))
	if _, err := a.HandleChallenge([]byte(missingIter), 0x18); err == nil {
		t.Fatal("HandleChallenge succeeded with no iteration count")
	}
}

func TestParseSCRAMMessage(t *testing.T) {
	got := parseSCRAMMessage("r=abc,s=ZGVm,i=4096")
	want := map[string]string{"r": "abc", "s": "ZGVm", "i": "4096"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("parseSCRAMMessage()[%q] = %q, want %q", k, got[k], v)
		}
	}
}
