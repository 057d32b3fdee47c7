package rpc

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
)

// ObtainJWTSecret reads a hex-encoded 32 byte JWT secret from the given path.
// If the file does not exist and generateMissing is set, a new secret is generated and written.
// Other read errors never cause the existing file to be overwritten.
func ObtainJWTSecret(logger log.Logger, jwtSecretPath string, generateMissing bool) ([32]byte, error) {
	jwtSecretPath = strings.TrimSpace(jwtSecretPath)
	if jwtSecretPath == "" {
		return [32]byte{}, errors.New("file-name of jwt secret is empty")
	}
	data, err := os.ReadFile(jwtSecretPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return [32]byte{}, fmt.Errorf("failed to read JWT secret from file path %q: %w", jwtSecretPath, err)
		}
		if !generateMissing {
			return [32]byte{}, fmt.Errorf("JWT-secret in path %q does not exist: %w", jwtSecretPath, err)
		}
		logger.Warn("Failed to read JWT secret from file, generating a new one now.", "path", jwtSecretPath)
		return generateJWTSecret(jwtSecretPath)
	}
	jwtSecret := common.FromHex(strings.TrimSpace(string(data)))
	if len(jwtSecret) != 32 {
		return [32]byte{}, fmt.Errorf("invalid jwt secret in path %q, not 32 hex-formatted bytes", jwtSecretPath)
	}
	return [32]byte(jwtSecret), nil
}

func generateJWTSecret(path string) ([32]byte, error) {
	var secret [32]byte
	if _, err := io.ReadFull(rand.Reader, secret[:]); err != nil {
		return [32]byte{}, fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	if err := os.WriteFile(path, []byte(hexutil.Encode(secret[:])), 0o600); err != nil {
		return [32]byte{}, err
	}
	return secret, nil
}
