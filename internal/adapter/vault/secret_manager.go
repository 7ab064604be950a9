package vault

import (
	"fmt"

	"github.com/hashicorp/vault/api"

	"github.com/voltwise/chargewatch/pkg/config"
)

// SecretManager pulls runtime secrets from Vault's KV v2 engine. It is
// optional; deployments without Vault keep their secrets in the environment.
type SecretManager struct {
	client *api.Client
}

func NewSecretManager(cfg config.VaultConfig) (*SecretManager, error) {
	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = cfg.Address

	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &SecretManager{client: client}, nil
}

// DatabaseURL returns the history database connection string.
func (sm *SecretManager) DatabaseURL() (string, error) {
	return sm.readField("secret/data/chargewatch/database", "url")
}

// StripeSecretKey returns the Stripe API key used by the payment initiator.
func (sm *SecretManager) StripeSecretKey() (string, error) {
	return sm.readField("secret/data/chargewatch/stripe", "secret_key")
}

func (sm *SecretManager) readField(path, field string) (string, error) {
	secret, err := sm.client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected secret format at %s", path)
	}
	value, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("field %s missing at %s", field, path)
	}
	return value, nil
}
