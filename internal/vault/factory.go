package vault

import (
	"context"
	"fmt"

	"sweeper/internal/config"
	"sweeper/internal/sweep"
)

// New builds the configured vault. Returns (nil, nil) when stashing is
// disabled.
func New(ctx context.Context, cfg config.StashConfig, logger sweep.Logger) (sweep.Vault, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "filesystem":
		return NewFilesystemVault(cfg.Dir, logger), nil
	case "s3":
		return NewS3Vault(ctx, cfg.S3, logger)
	case "memory":
		return NewMemoryVault(), nil
	default:
		return nil, fmt.Errorf("unknown stash type %q", cfg.Type)
	}
}
