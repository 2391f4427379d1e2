package bond

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/rigado/ble/linux/hci"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

type manager struct {
	lock sync.RWMutex
}

type bondInfo struct {
	Bonds []remoteKeyInfo `json:"bonds"`
}

type remoteKeyInfo struct {
	Address               string `json:"address"`
	LongTermKey           string `json:"longTermKey"`
	EncryptionDiversifier string `json:"encryptionDiversifier"`
	RandomValue           string `json:"randomValue"`
	Legacy                bool   `json:"legacy"`

	IRK                 string `json:"irk,omitempty"`
	IdentityAddress     string `json:"identityAddress,omitempty"`
	IdentityAddressType uint8  `json:"identityAddressType,omitempty"`
	CSRK                string `json:"csrk,omitempty"`
}

const (
	bondFilename = "bonds.json"
)

func NewBondManager() hci.BondManager {
	return &manager{}
}

func (m *manager) Exists(addr string) bool {
	if len(addr) != 12 {
		return false
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	bonds, err := loadBonds()
	if err != nil {
		fmt.Print(err)
		return false
	}

	for _, b := range bonds.Bonds {
		if b.Address == addr {
			return true
		}
	}

	return false
}

func (m *manager) Find(addr string) (hci.BondInfo, error) {
	if len(addr) != 12 {
		return nil, fmt.Errorf("invalid address")
	}

	m.lock.RLock()
	defer m.lock.RUnlock()

	bonds, err := loadBonds()
	if err != nil {
		return nil, err
	}

	for _, bond := range bonds.Bonds {
		if bond.Address != addr {
			continue
		}
		return decodeRemoteKeyInfo(bond)
	}

	return nil, fmt.Errorf("bond information not found for %s", addr)
}

func decodeRemoteKeyInfo(bond remoteKeyInfo) (hci.BondInfo, error) {
	ltk, err := hex.DecodeString(bond.LongTermKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode long term key: %s", err)
	}

	eDiv, err := hex.DecodeString(bond.EncryptionDiversifier)
	if err != nil {
		return nil, fmt.Errorf("invalid ediv in bond file")
	}

	randVal, err := hex.DecodeString(bond.RandomValue)
	if err != nil {
		return nil, fmt.Errorf("invalid random value in bond file")
	}

	var irk, identityAddr, csrk []byte
	if bond.IRK != "" {
		irk, _ = hex.DecodeString(bond.IRK)
	}
	if bond.IdentityAddress != "" {
		identityAddr, _ = hex.DecodeString(bond.IdentityAddress)
	}
	if bond.CSRK != "" {
		csrk, _ = hex.DecodeString(bond.CSRK)
	}

	return hci.NewBondInfoWithIdentity(
		ltk,
		binary.LittleEndian.Uint16(eDiv),
		binary.LittleEndian.Uint64(randVal),
		bond.Legacy,
		irk, identityAddr, bond.IdentityAddressType, csrk,
	), nil
}

// Save upserts the bond for addr, replacing any prior entry.
func (m *manager) Save(addr string, bond hci.BondInfo) error {
	if len(addr) != 12 {
		return fmt.Errorf("invalid address: %s", addr)
	}

	if bond == nil {
		return fmt.Errorf("empty bond information")
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	bonds, err := loadBonds()
	if err != nil {
		return err
	}

	rki := createRemoteKeyInfo(bond)
	rki.Address = addr

	replaced := false
	for i, existing := range bonds.Bonds {
		if existing.Address == addr {
			bonds.Bonds[i] = rki
			replaced = true
			break
		}
	}
	if !replaced {
		bonds.Bonds = append(bonds.Bonds, rki)
	}

	return storeBonds(bonds)
}

func (m *manager) Delete(addr string) error {
	if len(addr) != 12 {
		return fmt.Errorf("invalid address: %s", addr)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	bonds, err := loadBonds()
	if err != nil {
		return err
	}

	kept := bonds.Bonds[:0]
	for _, existing := range bonds.Bonds {
		if existing.Address != addr {
			kept = append(kept, existing)
		}
	}
	bonds.Bonds = kept

	return storeBonds(bonds)
}

func createRemoteKeyInfo(bond hci.BondInfo) remoteKeyInfo {
	rki := remoteKeyInfo{}

	rki.LongTermKey = hex.EncodeToString(bond.LongTermKey())

	eDiv := make([]byte, 2)
	binary.LittleEndian.PutUint16(eDiv, bond.EDiv())

	randVal := make([]byte, 8)
	binary.LittleEndian.PutUint64(randVal, bond.Random())

	rki.EncryptionDiversifier = hex.EncodeToString(eDiv)
	rki.RandomValue = hex.EncodeToString(randVal)
	rki.Legacy = bond.Legacy()

	if irk := bond.IRK(); len(irk) > 0 {
		rki.IRK = hex.EncodeToString(irk)
	}
	if ia := bond.IdentityAddress(); len(ia) > 0 {
		rki.IdentityAddress = hex.EncodeToString(ia)
		rki.IdentityAddressType = bond.IdentityAddressType()
	}
	if csrk := bond.CSRK(); len(csrk) > 0 {
		rki.CSRK = hex.EncodeToString(csrk)
	}

	return rki
}

func loadBonds() (*bondInfo, error) {
	bondFile := filepath.Join(os.Getenv("SNAP_DATA"), bondFilename)
	_, err := os.Stat(bondFile)
	var f *os.File
	if os.IsNotExist(err) {
		f, err = os.Create(bondFile)
		if err != nil {
			return nil, fmt.Errorf("unable to create bond file: %s", err)
		}
		_ = f.Close()
	}

	fileData, err := ioutil.ReadFile(bondFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read bond file information: %s", err)
	}

	var bonds bondInfo
	if len(fileData) > 0 {
		err = jsonAPI.Unmarshal(fileData, &bonds)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal current bond info: %s", err)
		}
	}

	if len(bonds.Bonds) == 0 {
		bonds.Bonds = make([]remoteKeyInfo, 0, 1)
	}

	return &bonds, nil
}

func storeBonds(bonds *bondInfo) error {
	bondFile := filepath.Join(os.Getenv("SNAP_DATA"), bondFilename)
	out, err := jsonAPI.Marshal(bonds)
	if err != nil {
		return fmt.Errorf("failed to marshal bonds to json: %s", err)
	}

	err = ioutil.WriteFile(bondFile, out, 0644)
	if err != nil {
		return fmt.Errorf("failed to update bond information: %s", err)
	}

	return nil
}
