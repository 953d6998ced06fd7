package seeder

import (
	"context"

	"github.com/vnmchuo/ai-core/internal/auth"
	"github.com/vnmchuo/ai-core/internal/logger"
)

const (
	DevAdminKey   = "dev-admin-key-12345"
	DevAdminLabel = "development"
)

// SeedDevAdminKey stores the well-known development admin key. An existing
// key is left as is.
func SeedDevAdminKey(ctx context.Context, store auth.Store, log *logger.Logger) error {
	if _, err := store.GetByKey(ctx, DevAdminKey); err == nil {
		log.Info("seeder: development admin key already present")
		return nil
	}

	key := &auth.AdminKey{
		Label:   DevAdminLabel,
		KeyHash: auth.HashKey(DevAdminKey),
		Active:  true,
	}
	if err := store.Create(ctx, key); err != nil {
		return err
	}
	log.Info("seeder: development admin key created", "id", key.ID, "key", DevAdminKey)
	return nil
}
