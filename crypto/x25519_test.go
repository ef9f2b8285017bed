package crypto

import (
	"bytes"
	"testing"
)

func TestDeriveSessionSecretAgreement(t *testing.T) {
	clientPub, clientPriv, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error = %v", err)
	}
	serverPub, serverPriv, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error = %v", err)
	}

	clientSecret, err := DeriveSessionSecret(clientPriv, serverPub)
	if err != nil {
		t.Fatalf("DeriveSessionSecret() error = %v", err)
	}
	serverSecret, err := DeriveSessionSecret(serverPriv, clientPub)
	if err != nil {
		t.Fatalf("DeriveSessionSecret() error = %v", err)
	}

	if !bytes.Equal(clientSecret, serverSecret) {
		t.Error("both sides derived different session secrets")
	}
	if len(clientSecret) != SessionKeySize {
		t.Errorf("secret length = %d, want %d", len(clientSecret), SessionKeySize)
	}

	// A third party with its own key pair derives something else.
	_, otherPriv, err := GenerateEphemeralKeyPair()
	if err != nil {
		t.Fatalf("GenerateEphemeralKeyPair() error = %v", err)
	}
	otherSecret, err := DeriveSessionSecret(otherPriv, serverPub)
	if err != nil {
		t.Fatalf("DeriveSessionSecret() error = %v", err)
	}
	if bytes.Equal(otherSecret, clientSecret) {
		t.Error("unrelated key pair derived the same secret")
	}
}
