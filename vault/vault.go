package vault

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/lucidmetrics/adsync_backend/config"
	"github.com/lucidmetrics/adsync_backend/models"
	"github.com/lucidmetrics/adsync_backend/utils"
	"gorm.io/gorm"
)

// Vault resolves stored upstream credentials. Secret issuance, rotation and
// encryption-at-rest live outside this service; the vault only hands working
// credentials to sync runs.
type Vault interface {
	// GetToken returns the bearer/session token for (account, provider).
	// Returns utils.ErrCredentialExpired when the connection is flagged as
	// needing re-authentication.
	GetToken(ctx context.Context, accountId, provider string) (string, error)
	// GetBasicCredentials returns the email/password pair for providers that
	// only support password login.
	GetBasicCredentials(ctx context.Context, accountId, provider string) (email, password string, err error)
}

// DBVault reads credential references off the SourceConnection rows. The
// AuthSecretRef column carries the secret payload sealed by the platform's
// secret manager; decryption happened before the row reached us.
type DBVault struct {
	DB *gorm.DB
}

type secretPayload struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (v *DBVault) connection(ctx context.Context, accountId, provider string) (*models.SourceConnection, error) {
	var conn models.SourceConnection
	err := v.DB.WithContext(ctx).
		Where("account_id = ? AND provider = ?", accountId, provider).
		First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	if conn.Status == models.ConnectionStatusAuthExpired {
		return nil, utils.ErrCredentialExpired
	}
	if conn.Status != models.ConnectionStatusConnected {
		return nil, errors.New("connection is not active")
	}
	return &conn, nil
}

func (v *DBVault) GetToken(ctx context.Context, accountId, provider string) (string, error) {
	conn, err := v.connection(ctx, accountId, provider)
	if err != nil {
		return "", err
	}
	var payload secretPayload
	if err := json.Unmarshal([]byte(conn.AuthSecretRef), &payload); err != nil || payload.Token == "" {
		config.LogError(config.GetLogger(), "vault", "GetToken", "unreadable secret payload", accountId, utils.ErrCredentialExpired)
		return "", utils.ErrCredentialExpired
	}
	return payload.Token, nil
}

func (v *DBVault) GetBasicCredentials(ctx context.Context, accountId, provider string) (string, string, error) {
	conn, err := v.connection(ctx, accountId, provider)
	if err != nil {
		return "", "", err
	}
	var payload secretPayload
	if err := json.Unmarshal([]byte(conn.AuthSecretRef), &payload); err != nil || payload.Email == "" || payload.Password == "" {
		config.LogError(config.GetLogger(), "vault", "GetBasicCredentials", "unreadable secret payload", accountId, utils.ErrCredentialExpired)
		return "", "", utils.ErrCredentialExpired
	}
	return payload.Email, payload.Password, nil
}
