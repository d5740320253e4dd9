// Package certificates is the per-user append-only certificate list.
//
// Indices are assigned at append and never reused. The revoked flag only
// moves false -> true; revoking twice is a no-op.
package certificates

import (
	"strconv"

	"credledger/contracts/protocol"
	"credledger/internal/ledger"
	"credledger/internal/ledger/chain"
	"credledger/pkg/domain"
	dErrors "credledger/pkg/domain-errors"
)

type record struct {
	Hash    string         `json:"hash"`
	Issuer  domain.Address `json:"issuer"`
	Revoked bool           `json:"revoked"`
}

type counts struct {
	Total   uint64 `json:"total"`
	Revoked uint64 `json:"revoked"`
}

type Contract struct {
	*chain.Router
	issuers domain.Address
}

// New binds the contract to the issuer registry at issuers.
func New(issuers domain.Address) *Contract {
	c := &Contract{Router: chain.NewRouter(protocol.Certificates), issuers: issuers}
	c.Write(protocol.MethodAddCertificate, 2, c.addCertificate).
		Write(protocol.MethodRevokeCertificate, 2, c.revokeCertificate).
		Read(protocol.MethodGetCertificateIndex, 2, c.getCertificateIndex).
		Read(protocol.MethodGetCertificateCount, 2, c.getCertificateCount).
		Read(protocol.MethodGetCertificateMetadata, 2, c.getCertificateMetadata).
		Read(protocol.MethodGetCertificateAt, 2, c.getCertificateAt)
	return c
}

func countsKey(owner domain.Address) string { return "counts/" + owner.Key() }
func recordKey(owner domain.Address, index uint64) string {
	return "cert/" + owner.Key() + "/" + strconv.FormatUint(index, 10)
}

func loadCounts(tx *chain.TxContext, owner domain.Address) (counts, error) {
	var c counts
	_, err := tx.Get(countsKey(owner), &c)
	return c, err
}

func loadRecord(tx *chain.TxContext, owner domain.Address, index uint64) (record, error) {
	c, err := loadCounts(tx, owner)
	if err != nil {
		return record{}, err
	}
	if index >= c.Total {
		return record{}, ledger.Revert(dErrors.CodeIndexOutOfRange,
			"certificate index %d out of range for %s (count %d)", index, owner, c.Total)
	}
	var r record
	if _, err := tx.Get(recordKey(owner, index), &r); err != nil {
		return record{}, err
	}
	return r, nil
}

// indexOf returns the first index holding hash.
func indexOf(tx *chain.TxContext, owner domain.Address, hash string) (uint64, record, error) {
	c, err := loadCounts(tx, owner)
	if err != nil {
		return 0, record{}, err
	}
	for i := range c.Total {
		var r record
		if _, err := tx.Get(recordKey(owner, i), &r); err != nil {
			return 0, record{}, err
		}
		if r.Hash == hash {
			return i, r, nil
		}
	}
	return 0, record{}, ledger.Revert(dErrors.CodeNotFound, "no certificate %s for %s", hash, owner)
}

func (c *Contract) addCertificate(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	hash, err := args.Hash(1)
	if err != nil {
		return nil, err
	}

	var status protocol.IssuerStatus
	if err := tx.Invoke(c.issuers, protocol.MethodGetIssuerStatus, &status, tx.Sender()); err != nil {
		return nil, err
	}
	if status != protocol.IssuerActive {
		return nil, ledger.Revert(dErrors.CodeIssuerNotActive, "issuer %s is %s", tx.Sender(), status)
	}

	n, err := loadCounts(tx, owner)
	if err != nil {
		return nil, err
	}
	index := n.Total
	if err := tx.Put(recordKey(owner, index), record{Hash: hash, Issuer: tx.Sender()}); err != nil {
		return nil, err
	}
	n.Total++
	if err := tx.Put(countsKey(owner), n); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventCertificateAdded, map[string]string{
		"owner":  owner.String(),
		"hash":   hash,
		"issuer": tx.Sender().String(),
		"index":  strconv.FormatUint(index, 10),
	})
	return index, nil
}

func (c *Contract) revokeCertificate(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	index, err := args.Uint64(1)
	if err != nil {
		return nil, err
	}
	r, err := loadRecord(tx, owner, index)
	if err != nil {
		return nil, err
	}
	if !r.Issuer.Equal(tx.Sender()) {
		return nil, ledger.Revert(dErrors.CodeUnauthorized,
			"address %s did not issue certificate %d of %s", tx.Sender(), index, owner)
	}
	if r.Revoked {
		return false, nil
	}

	r.Revoked = true
	if err := tx.Put(recordKey(owner, index), r); err != nil {
		return nil, err
	}
	n, err := loadCounts(tx, owner)
	if err != nil {
		return nil, err
	}
	n.Revoked++
	if err := tx.Put(countsKey(owner), n); err != nil {
		return nil, err
	}
	tx.Emit(protocol.EventCertificateRevoked, map[string]string{
		"owner": owner.String(),
		"hash":  r.Hash,
		"index": strconv.FormatUint(index, 10),
	})
	return true, nil
}

func (c *Contract) getCertificateIndex(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	hash, err := args.Hash(1)
	if err != nil {
		return nil, err
	}
	index, _, err := indexOf(tx, owner, hash)
	if err != nil {
		return nil, err
	}
	return index, nil
}

func (c *Contract) getCertificateCount(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	includeRevoked, err := args.Bool(1)
	if err != nil {
		return nil, err
	}
	n, err := loadCounts(tx, owner)
	if err != nil {
		return nil, err
	}
	if includeRevoked {
		return n.Total, nil
	}
	return n.Total - n.Revoked, nil
}

func (c *Contract) getCertificateMetadata(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	hash, err := args.Hash(1)
	if err != nil {
		return nil, err
	}
	_, r, err := indexOf(tx, owner, hash)
	if err != nil {
		return nil, err
	}
	return protocol.CertificateMetadata{Issuer: r.Issuer.String(), Revoked: r.Revoked}, nil
}

func (c *Contract) getCertificateAt(tx *chain.TxContext, args chain.Args) (any, error) {
	owner, err := args.Address(0)
	if err != nil {
		return nil, err
	}
	index, err := args.Uint64(1)
	if err != nil {
		return nil, err
	}
	r, err := loadRecord(tx, owner, index)
	if err != nil {
		return nil, err
	}
	return protocol.CertificateEntry{Hash: r.Hash, Issuer: r.Issuer.String(), Revoked: r.Revoked}, nil
}
