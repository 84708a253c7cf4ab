package crypto

import (
	"encoding/hex"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOrder() OrderPayload {
	return OrderPayload{
		Salt:        "123456789",
		Maker:       "0x56687bf447db6ffa42ffe2204a05edaa20f55839",
		Signer:      "0x56687bf447db6ffa42ffe2204a05edaa20f55839",
		Taker:       "0x0000000000000000000000000000000000000000",
		TokenID:     "71321045679252212594626385532706912750332728571942532289631379312455583992563",
		MakerAmount: "50000000",
		TakerAmount: "100000000",
		Expiration:  "0",
		Nonce:       "0",
		FeeRateBps:  "0",
		Side:        0,
	}
}

func TestNewSigner_DerivesAddress(t *testing.T) {
	s, err := NewSigner("0x"+testKeyHex, 137)
	require.NoError(t, err)

	// Address for this well-known key, per its secp256k1 public key.
	pk, err := ethcrypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, ethcrypto.PubkeyToAddress(pk.PublicKey), s.Address())
}

func TestNewSigner_RejectsInvalidKey(t *testing.T) {
	_, err := NewSigner("zz", 137)
	assert.Error(t, err)
}

func TestSignOrder_Shape(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)

	sig, err := s.SignOrder(testOrder())
	require.NoError(t, err)

	require.True(t, len(sig) == 132 && sig[:2] == "0x", "want 0x-prefixed 65-byte signature, got %q", sig)
	raw, err := hex.DecodeString(sig[2:])
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, raw[64])
}

func TestSignOrder_DeterministicAndInputSensitive(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)

	a, err := s.SignOrder(testOrder())
	require.NoError(t, err)
	b, err := s.SignOrder(testOrder())
	require.NoError(t, err)
	assert.Equal(t, a, b)

	sell := testOrder()
	sell.Side = 1
	c, err := s.SignOrder(sell)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestSignOrder_RejectsNonNumericFields(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)

	bad := testOrder()
	bad.TokenID = "not-a-number"
	_, err = s.SignOrder(bad)
	assert.Error(t, err)
}

func TestSignAuthMessage(t *testing.T) {
	s, err := NewSigner(testKeyHex, 137)
	require.NoError(t, err)

	sig, err := s.SignAuthMessage(s.Address().Hex(), 1756300000, 0)
	require.NoError(t, err)
	assert.Len(t, sig, 132)

	again, err := s.SignAuthMessage(s.Address().Hex(), 1756300000, 0)
	require.NoError(t, err)
	assert.Equal(t, sig, again)
}
