package vault

import (
	"fmt"

	"paracipher-go/internal/config"
	"paracipher-go/internal/engine"
)

// NewVaultFromConfig creates an EvidenceVault based on the vault config type.
func NewVaultFromConfig(cfg config.VaultConfig) (engine.EvidenceVault, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "s3":
		return nil, fmt.Errorf("s3 vault not yet implemented")
	case "filesystem":
		if cfg.FSVaultRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_vault_root to be set")
		}
		return NewFileSystemVault(cfg.Name, cfg.FSVaultRoot)
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
