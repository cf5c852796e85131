package wallet

import (
	"fmt"
	"math/big"

	"github.com/Klingon-tech/klingwallet/internal/network"
	"github.com/Klingon-tech/klingwallet/pkg/crypto"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Signer signs transactions for one account on one network.
type Signer struct {
	key     *crypto.PrivateKey
	address common.Address
	network string
	chainID *big.Int
	signer  ethtypes.Signer
}

// BindSigner scopes the account's key to the chain ID of net.
func BindSigner(acct *Account, net network.Descriptor) (*Signer, error) {
	if !acct.HasKey() {
		return nil, ErrSignerUnavailable
	}
	chainID := new(big.Int).SetUint64(net.ChainID)
	return &Signer{
		key:     acct.key,
		address: acct.Address,
		network: net.ID,
		chainID: chainID,
		signer:  ethtypes.LatestSignerForChainID(chainID),
	}, nil
}

// Address returns the signing address.
func (s *Signer) Address() common.Address { return s.address }

// Network returns the id of the network the signer is bound to.
func (s *Signer) Network() string { return s.network }

// ChainID returns a copy of the bound chain ID.
func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// SignTx signs tx with the bound chain's latest signer.
func (s *Signer) SignTx(tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	if tx.ChainId() != nil && tx.ChainId().Sign() != 0 && tx.ChainId().Cmp(s.chainID) != 0 {
		return nil, fmt.Errorf("transaction chain id %s does not match signer chain id %s", tx.ChainId(), s.chainID)
	}
	priv, err := s.key.ToECDSA()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignerUnavailable, err)
	}
	defer crypto.ZeroECDSA(priv)

	signed, err := ethtypes.SignTx(tx, s.signer, priv)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
