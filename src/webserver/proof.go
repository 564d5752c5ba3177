package webserver

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/blake2b"
)

const tokenTTL = 24 * time.Hour

// verifyProof checks the operator's answer to a login challenge: the hex
// BLAKE2b-256 MAC of the nonce under the shared operator key.
func verifyProof(key []byte, nonce, proof string) error {
	mac, err := blake2b.New256(key)
	if err != nil {
		return fmt.Errorf("operator key: %w", err)
	}
	mac.Write([]byte(nonce))
	want := mac.Sum(nil)

	got, err := hex.DecodeString(strings.TrimPrefix(proof, "0x"))
	if err != nil {
		return fmt.Errorf("proof encoding: %w", err)
	}
	if !hmac.Equal(want, got) {
		return fmt.Errorf("proof mismatch")
	}
	return nil
}

func issueJWT(operator string, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"op":  operator,
		"exp": time.Now().Add(tokenTTL).Unix(),
	})
	return token.SignedString(secret)
}
