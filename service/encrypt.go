package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"strings"
)

// CardData is the raw card as entered by the payer. It is never logged.
type CardData struct {
	CardNumber     string `json:"card_number" validate:"required,numeric,min=13,max=19"`
	CardHolderName string `json:"card_holder_name" validate:"omitempty,max=50"`
	ExpireMonth    string `json:"expire_month" validate:"required,numeric,len=2"`
	ExpireYear     string `json:"expire_year" validate:"required,numeric,min=2,max=4"`
	SecurityCode   string `json:"security_code" validate:"omitempty,numeric,min=3,max=4"`
}

// EncryptedCard is the opaque blob accepted by the token service
type EncryptedCard struct {
	Blob    string
	KeyHash string
}

// CardEncrypter turns card data into an encrypted blob for the token service
type CardEncrypter interface {
	Encrypt(card CardData, publicKey string) (EncryptedCard, error)
}

// RSACardEncrypter encrypts card data with RSA-OAEP (SHA-256)
type RSACardEncrypter struct {
	random io.Reader
}

// NewRSACardEncrypter creates an encrypter using crypto/rand
func NewRSACardEncrypter() *RSACardEncrypter {
	return &RSACardEncrypter{random: rand.Reader}
}

// Encrypt serializes card and encrypts it with publicKey.
// KeyHash is the hex SHA-256 of the DER key so the token service can pick its private key.
func (e *RSACardEncrypter) Encrypt(card CardData, publicKey string) (EncryptedCard, error) {
	key, der, err := ParsePublicKey(publicKey)
	if err != nil {
		return EncryptedCard{}, err
	}

	plaintext, err := json.Marshal(map[string]string{
		"cardNumber":     card.CardNumber,
		"cardholderName": card.CardHolderName,
		"expiryMonth":    card.ExpireMonth,
		"expiryYear":     card.ExpireYear,
		"securityCode":   card.SecurityCode,
	})
	if err != nil {
		return EncryptedCard{}, fmt.Errorf("failed to encode card: %w", err)
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), e.random, key, plaintext, nil)
	if err != nil {
		return EncryptedCard{}, fmt.Errorf("failed to encrypt card: %w", err)
	}

	sum := sha256.Sum256(der)
	return EncryptedCard{
		Blob:    base64.StdEncoding.EncodeToString(ciphertext),
		KeyHash: hex.EncodeToString(sum[:]),
	}, nil
}

// ParsePublicKey accepts a PEM block or bare base64 DER in PKIX form
func ParsePublicKey(s string) (*rsa.PublicKey, []byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil, errors.New("public key is empty")
	}

	var der []byte
	if block, _ := pem.Decode([]byte(s)); block != nil {
		der = block.Bytes
	} else {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, nil, fmt.Errorf("public key is neither PEM nor base64: %w", err)
		}
		der = decoded
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid public key: %w", err)
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("public key is %T, not RSA", parsed)
	}
	return key, der, nil
}
