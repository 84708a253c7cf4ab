package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Pre-computed keccak256 hashes of the canonical EIP-712 type strings the
// CLOB uses.
var (
	domainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,uint256 timestamp,uint256 nonce)"),
	)
	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// OrderPayload carries the twelve Order fields signed via EIP-712. Addresses
// and large integers are strings to preserve precision across JSON.
type OrderPayload struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          int    `json:"side"`          // 0 = BUY, 1 = SELL
	SignatureType int    `json:"signatureType"` // 0 = EOA, 1 = POLY_PROXY, 2 = POLY_GNOSIS_SAFE
}

// Signer signs CLOB auth messages and orders with a secp256k1 key.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    int
	domainSep  []byte
}

// NewSigner creates a Signer from a hex private key and the target chain ID
// (137 for Polygon mainnet, 80002 for Amoy).
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	s := &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    chainID,
	}
	// The ClobAuth domain separator is fixed per chain; hash it once.
	s.domainSep = ethcrypto.Keccak256(encodeFields(
		domainTypeHash,
		ethcrypto.Keccak256([]byte("ClobAuthDomain")),
		ethcrypto.Keccak256([]byte("1")),
		uint256Word(big.NewInt(int64(chainID))),
	))
	return s, nil
}

// Address returns the address derived from the signing key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignAuthMessage signs the ClobAuth struct used by the derive-api-key flow.
// Returns a hex 65-byte signature with the recovery byte.
func (s *Signer) SignAuthMessage(address string, timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(encodeFields(
		clobAuthTypeHash,
		addressWord(address),
		uint256Word(big.NewInt(timestamp)),
		uint256Word(big.NewInt(nonce)),
	))
	return s.signTyped(structHash)
}

// SignOrder signs an Order struct for placement on the CLOB.
func (s *Signer) SignOrder(order OrderPayload) (string, error) {
	words := make([][]byte, 0, 13)
	words = append(words, orderTypeHash)

	for _, f := range []struct{ name, value string }{
		{"salt", order.Salt},
		{"maker", order.Maker},
		{"signer", order.Signer},
		{"taker", order.Taker},
		{"tokenId", order.TokenID},
		{"makerAmount", order.MakerAmount},
		{"takerAmount", order.TakerAmount},
		{"expiration", order.Expiration},
		{"nonce", order.Nonce},
		{"feeRateBps", order.FeeRateBps},
	} {
		switch f.name {
		case "maker", "signer", "taker":
			words = append(words, addressWord(f.value))
		default:
			n, ok := new(big.Int).SetString(f.value, 10)
			if !ok {
				return "", fmt.Errorf("crypto/signer: invalid %s %q", f.name, f.value)
			}
			words = append(words, uint256Word(n))
		}
	}
	words = append(words,
		uint256Word(big.NewInt(int64(order.Side))),
		uint256Word(big.NewInt(int64(order.SignatureType))),
	)

	return s.signTyped(ethcrypto.Keccak256(encodeFields(words...)))
}

// signTyped computes keccak256("\x19\x01" || domainSeparator || structHash)
// and signs it, normalizing the recovery byte to {27,28}.
func (s *Signer) signTyped(structHash []byte) (string, error) {
	digest := ethcrypto.Keccak256(encodeFields([]byte{0x19, 0x01}, s.domainSep, structHash))

	sig, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: signing: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// encodeFields concatenates abi-encoded words.
func encodeFields(words ...[]byte) []byte {
	size := 0
	for _, w := range words {
		size += len(w)
	}
	buf := make([]byte, 0, size)
	for _, w := range words {
		buf = append(buf, w...)
	}
	return buf
}

// addressWord left-pads an address to a 32-byte word.
func addressWord(addr string) []byte {
	return common.LeftPadBytes(common.HexToAddress(addr).Bytes(), 32)
}

// uint256Word returns the 32-byte big-endian representation of n.
func uint256Word(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	word := make([]byte, 32)
	copy(word[32-len(b):], b)
	return word
}
