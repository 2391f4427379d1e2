package smp

import (
	"bytes"
	"crypto"
	"crypto/elliptic"
	"crypto/rand"

	"github.com/pkg/errors"
	"github.com/rigado/ble/sliceops"
	"github.com/wsddn/go-ecdh"
)

var errAllZeroDHKey = errors.New("all-zero DHKey")

type ECDHKeys struct {
	public  crypto.PublicKey
	private crypto.PrivateKey
}

func GenerateKeys() (*ECDHKeys, error) {
	var err error
	kp := ECDHKeys{}
	e := ecdh.NewEllipticECDH(elliptic.P256())

	kp.private, kp.public, err = e.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	return &kp, nil
}

func UnmarshalPublicKey(b []byte) (crypto.PublicKey, bool) {
	e := ecdh.NewEllipticECDH(elliptic.P256())
	xs := sliceops.SwapBuf(b[:32])
	ys := sliceops.SwapBuf(b[32:])

	//add header
	r := append([]byte{0x04}, xs...)
	r = append(r, ys...)

	pk, ok := e.Unmarshal(r)

	return pk, ok
}

func MarshalPublicKeyXY(k crypto.PublicKey) []byte {
	e := ecdh.NewEllipticECDH(elliptic.P256())

	ba := e.Marshal(k)
	ba = ba[1:] //remove header
	x := sliceops.SwapBuf(ba[:32])
	y := sliceops.SwapBuf(ba[32:])

	out := append(x, y...)

	return out
}

func MarshalPublicKeyX(k crypto.PublicKey) []byte {
	e := ecdh.NewEllipticECDH(elliptic.P256())

	ba := e.Marshal(k)
	ba = ba[1:] //remove header
	x := sliceops.SwapBuf(ba[:32])

	return x
}

// GenerateSecret computes the ECDH shared secret and rejects an
// all-zero result, the point-at-infinity case the teacher's version
// never checked for.
func GenerateSecret(prv crypto.PrivateKey, pub crypto.PublicKey) ([]byte, error) {
	e := ecdh.NewEllipticECDH(elliptic.P256())
	b, err := e.GenerateSharedSecret(prv, pub)
	if err != nil {
		return nil, err
	}
	if allZero(b) {
		return nil, newFailure(ReasonUnspecifiedReason, errAllZeroDHKey)
	}
	return sliceops.SwapBuf(b), nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

// samePublicKey reports whether two marshalled public keys are
// byte-identical, the CVE-2020-26558 reflection-attack check: a peer
// that echoes our own public key back must be rejected.
func samePublicKey(local crypto.PublicKey, remoteXY []byte) bool {
	return bytes.Equal(MarshalPublicKeyXY(local), remoteXY)
}
