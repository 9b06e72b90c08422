package secrets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgsecrets "github.com/alarmdesk/console/pkg/secrets"
)

// BootstrapAdmin holds the seed account fetched from Secrets Manager.
type BootstrapAdmin struct {
	Username string
	Password string
	Role     string
}

// ResolveBootstrapAdmin reads the seed account from the given secret.
//
// Secret JSON format: {"username": "...", "password": "...", "role": "..."}
// Role defaults to "admin" when the field is absent.
func ResolveBootstrapAdmin(
	ctx context.Context,
	logger *zap.Logger,
	provider pkgsecrets.Provider,
	secretName string,
) (BootstrapAdmin, error) {
	m, err := provider.GetSecret(ctx, secretName)
	if err != nil {
		return BootstrapAdmin{}, fmt.Errorf("fetching bootstrap secret %q: %w", secretName, err)
	}

	admin := BootstrapAdmin{
		Username: m["username"],
		Password: m["password"],
		Role:     m["role"],
	}
	if admin.Username == "" {
		return BootstrapAdmin{}, fmt.Errorf("secret %q missing required field %q", secretName, "username")
	}
	if admin.Password == "" {
		return BootstrapAdmin{}, fmt.Errorf("secret %q missing required field %q", secretName, "password")
	}
	if admin.Role == "" {
		admin.Role = "admin"
	}

	logger.Info("secrets.bootstrap_admin_resolved",
		zap.String("secret", secretName),
		zap.String("user", admin.Username))
	return admin, nil
}
