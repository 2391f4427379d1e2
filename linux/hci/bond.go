package hci

// bondInfo holds everything a completed pairing hands to the bond store:
// the encryption keys plus, for Secure Connections and resolvable private
// addresses, the identity and signing keys distributed in Phase 3.
type bondInfo struct {
	longTermKey []byte
	ediv        uint16
	randVal     uint64
	legacy      bool

	irk              []byte
	identityAddr     []byte
	identityAddrType uint8
	csrk             []byte
}

type BondManager interface {
	Find(addr string) (BondInfo, error)
	Save(string, BondInfo) error
	Exists(addr string) bool
	Delete(addr string) error
}

type BondInfo interface {
	LongTermKey() []byte
	EDiv() uint16
	Random() uint64
	Legacy() bool

	IRK() []byte
	IdentityAddress() []byte
	IdentityAddressType() uint8
	CSRK() []byte
}

func NewBondInfo(longTermKey []byte, ediv uint16, random uint64, legacy bool) BondInfo {
	return &bondInfo{
		longTermKey: longTermKey,
		ediv:        ediv,
		randVal:     random,
		legacy:      legacy,
	}
}

// NewBondInfoWithIdentity builds a BondInfo that also carries the identity
// and signing keys a Secure Connections (or legacy, with identity key
// distribution) pairing exchanged in Phase 3.
func NewBondInfoWithIdentity(longTermKey []byte, ediv uint16, random uint64, legacy bool, irk, identityAddr []byte, identityAddrType uint8, csrk []byte) BondInfo {
	return &bondInfo{
		longTermKey:      longTermKey,
		ediv:             ediv,
		randVal:          random,
		legacy:           legacy,
		irk:              irk,
		identityAddr:     identityAddr,
		identityAddrType: identityAddrType,
		csrk:             csrk,
	}
}

func (b *bondInfo) LongTermKey() []byte { return b.longTermKey }
func (b *bondInfo) EDiv() uint16        { return b.ediv }
func (b *bondInfo) Random() uint64      { return b.randVal }
func (b *bondInfo) Legacy() bool        { return b.legacy }

func (b *bondInfo) IRK() []byte                { return b.irk }
func (b *bondInfo) IdentityAddress() []byte    { return b.identityAddr }
func (b *bondInfo) IdentityAddressType() uint8 { return b.identityAddrType }
func (b *bondInfo) CSRK() []byte               { return b.csrk }
