package wallet

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	klog "github.com/Klingon-tech/klingwallet/internal/log"
	"github.com/Klingon-tech/klingwallet/pkg/crypto"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrGeneration        = errors.New("account generation failed")
	ErrInvalidPhrase     = errors.New("invalid recovery phrase")
	ErrInvalidKey        = errors.New("invalid private key")
	ErrSignerUnavailable = errors.New("signer unavailable")
	ErrAlreadyCommitted  = errors.New("account creation already committed")
	ErrDiscarded         = errors.New("account creation discarded")
)

// Account is a single externally owned account held in memory.
// The private key is never exported, logged or persisted.
type Account struct {
	Address common.Address
	// Phrase is the recovery phrase, empty for raw key imports.
	Phrase string

	key *crypto.PrivateKey
}

// HasKey reports whether the account still holds usable key material.
func (a *Account) HasKey() bool {
	return a != nil && !a.key.IsZero()
}

// FromPhrase reports whether the account was derived from a recovery phrase.
func (a *Account) FromPhrase() bool {
	return a.Phrase != ""
}

// Zero wipes the private key and forgets the phrase.
func (a *Account) Zero() {
	if a == nil {
		return
	}
	a.key.Zero()
	a.Phrase = ""
}

// String returns the checksummed address only.
func (a *Account) String() string {
	return a.Address.Hex()
}

// PendingAccountCreation is a freshly generated account whose phrase has been
// shown to the user but not yet accepted. It can be committed once.
type PendingAccountCreation struct {
	mu        sync.Mutex
	account   *Account
	committed bool
	discarded bool
}

// Phrase returns the 12-word recovery phrase to display for backup.
func (p *PendingAccountCreation) Phrase() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account == nil {
		return ""
	}
	return p.account.Phrase
}

// Address returns the address the committed account will have.
func (p *PendingAccountCreation) Address() common.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.account == nil {
		return common.Address{}
	}
	return p.account.Address
}

// Commit hands over the account. Later calls return ErrAlreadyCommitted.
func (p *PendingAccountCreation) Commit() (*Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.discarded {
		return nil, ErrDiscarded
	}
	if p.committed {
		return nil, ErrAlreadyCommitted
	}
	p.committed = true
	acct := p.account
	p.account = nil
	return acct, nil
}

// Discard wipes an uncommitted account.
func (p *PendingAccountCreation) Discard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.committed || p.discarded {
		return
	}
	p.discarded = true
	p.account.Zero()
	p.account = nil
}

// Generate creates a new account from 128 bits of entropy, derived at the
// default Ethereum path.
func Generate() (*PendingAccountCreation, error) {
	phrase, err := GenerateMnemonic()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	acct, err := deriveAccount(phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	klog.Wallet.Debug().Str("address", acct.Address.Hex()).Msg("Generated account, awaiting commit")
	return &PendingAccountCreation{account: acct}, nil
}

// DeriveFromPhrase restores an account from a recovery phrase. Extra
// whitespace and letter case are ignored.
func DeriveFromPhrase(phrase string) (*Account, error) {
	phrase = NormalizeMnemonic(phrase)
	if phrase == "" {
		return nil, fmt.Errorf("%w: empty phrase", ErrInvalidPhrase)
	}
	if n := len(strings.Fields(phrase)); !validWordCount(n) {
		return nil, fmt.Errorf("%w: %d words", ErrInvalidPhrase, n)
	}
	if !ValidateMnemonic(phrase) {
		return nil, fmt.Errorf("%w: unknown word or bad checksum", ErrInvalidPhrase)
	}
	acct, err := deriveAccount(phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPhrase, err)
	}
	return acct, nil
}

// ImportFromPrivateKey restores an account from a hex private key with an
// optional 0x prefix.
func ImportFromPrivateKey(hexKey string) (*Account, error) {
	priv, err := crypto.PrivateKeyFromHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &Account{Address: priv.Address(), key: priv}, nil
}

func deriveAccount(phrase string) (*Account, error) {
	seed, err := SeedFromMnemonic(phrase, "")
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	child, err := master.DeriveAddress(0, ChangeExternal, 0)
	if err != nil {
		return nil, err
	}
	priv, err := child.Signer()
	if err != nil {
		return nil, err
	}
	return &Account{Address: priv.Address(), Phrase: phrase, key: priv}, nil
}
