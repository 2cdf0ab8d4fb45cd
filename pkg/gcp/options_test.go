package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sonaskin/storefront-backend/pkg/config"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions(config.GCPConfig{}))
	assert.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{
		CredentialsJSON:        `{"type":"service_account"}`,
		ApplicationCredentials: "/secrets/sa.json",
	}), 1, "inline json wins")
}
