package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/faith-connect-biz/faithconnect-go/internal/domain/port/driven"
)

// Row names for the two entries of the credential pair.
const (
	nameAccessToken  = "access_token"
	nameRefreshToken = "refresh_token"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// When constructed with a 32-byte key, token values are encrypted with
// AES-256-GCM before write and decrypted after read; with a nil key they are
// stored in plaintext, which is acceptable only for local development.
type CredentialRepo struct {
	db  *DB
	key []byte
}

// NewCredentialRepo creates a CredentialRepo. key must be 32 bytes for
// AES-256-GCM, or nil to store tokens unencrypted.
func NewCredentialRepo(db *DB, key []byte) (*CredentialRepo, error) {
	if key != nil && len(key) != 32 {
		return nil, fmt.Errorf("credential encryption key must be 32 bytes, got %d", len(key))
	}
	return &CredentialRepo{db: db, key: key}, nil
}

// SetTokens stores or replaces both tokens of the session.
func (r *CredentialRepo) SetTokens(ctx context.Context, access, refresh string) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set tokens: %w", err)
	}
	defer tx.Rollback()

	for name, value := range map[string]string{
		nameAccessToken:  access,
		nameRefreshToken: refresh,
	} {
		if err := r.setInTx(ctx, tx, name, value); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set tokens: %w", err)
	}
	return nil
}

// SetAccessToken replaces only the access token.
func (r *CredentialRepo) SetAccessToken(ctx context.Context, access string) error {
	sealed, err := r.seal(access)
	if err != nil {
		return err
	}
	const query = `INSERT OR REPLACE INTO credentials (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, nameAccessToken, sealed); err != nil {
		return fmt.Errorf("set access token: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token, or ("", nil) when absent.
func (r *CredentialRepo) AccessToken(ctx context.Context) (string, error) {
	return r.get(ctx, nameAccessToken)
}

// RefreshToken returns the stored refresh token, or ("", nil) when absent.
func (r *CredentialRepo) RefreshToken(ctx context.Context) (string, error) {
	return r.get(ctx, nameRefreshToken)
}

// Clear removes both tokens. Clearing an already-empty store is a no-op.
func (r *CredentialRepo) Clear(ctx context.Context) error {
	const query = `DELETE FROM credentials WHERE name IN (?, ?)`
	if _, err := r.db.Writer.ExecContext(ctx, query, nameAccessToken, nameRefreshToken); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepo) setInTx(ctx context.Context, tx *sql.Tx, name, value string) error {
	sealed, err := r.seal(value)
	if err != nil {
		return err
	}
	const query = `INSERT OR REPLACE INTO credentials (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := tx.ExecContext(ctx, query, name, sealed); err != nil {
		return fmt.Errorf("set credential %q: %w", name, err)
	}
	return nil
}

func (r *CredentialRepo) get(ctx context.Context, name string) (string, error) {
	const query = `SELECT value FROM credentials WHERE name = ?`
	var sealed string
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get credential %q: %w", name, err)
	}

	value, err := r.open(sealed)
	if err != nil {
		return "", fmt.Errorf("decrypt credential %q: %w", name, err)
	}
	return value, nil
}

// seal encrypts plaintext with AES-256-GCM and returns base64(nonce||ciphertext||tag).
// With a nil key the plaintext passes through unchanged.
func (r *CredentialRepo) seal(plaintext string) (string, error) {
	if r.key == nil {
		return plaintext, nil
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// open reverses seal.
func (r *CredentialRepo) open(sealed string) (string, error) {
	if r.key == nil {
		return sealed, nil
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
