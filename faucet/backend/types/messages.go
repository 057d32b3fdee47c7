package types

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ClaimMessage is the text an identity signs to claim from the given faucet.
func ClaimMessage(faucet FaucetID, identity common.Address) string {
	return fmt.Sprintf("claim-faucet: claim from %s for %s", faucet, identity.Hex())
}

// DrainMessage is the text the owner signs to drain the given faucet.
func DrainMessage(faucet FaucetID, caller common.Address) string {
	return fmt.Sprintf("claim-faucet: drain %s by %s", faucet, caller.Hex())
}

// SignMessage signs msg as an EIP-191 personal message.
func SignMessage(key *ecdsa.PrivateKey, msg string) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash([]byte(msg)), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// VerifySignature checks that sig is an EIP-191 personal-message signature of msg by signer.
// Both 0/1 and 27/28 recovery IDs are accepted.
func VerifySignature(msg string, sig []byte, signer common.Address) error {
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(msg)), normalized)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if recovered := crypto.PubkeyToAddress(*pub); recovered != signer {
		return fmt.Errorf("%w: signed by %s, not %s", ErrInvalidSignature, recovered, signer)
	}
	return nil
}
