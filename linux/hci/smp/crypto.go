package smp

import (
	"crypto/aes"
	"encoding/binary"

	"github.com/aead/cmac"
	"github.com/rigado/ble/sliceops"
)

// Every function below stores and returns its operands in the same
// little-endian "wire" byte order the rest of this package keeps nonces,
// addresses and keys in. Internally each operand is converted to the
// Bluetooth Core Spec's big-endian operand order with swapBuf, the
// computation runs entirely in that domain, and only the final result is
// swapped back to wire order before returning.

func swapBuf(in []byte) []byte {
	return sliceops.SwapBuf(in)
}

func xorSlice(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

func cmacRaw(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	h, err := cmac.New(block)
	if err != nil {
		return nil, err
	}
	if _, err := h.Write(msg); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func aesEncryptBlock(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 16)
	block.Encrypt(out, msg)
	return out, nil
}

func concatBytes(parts ...[]byte) []byte {
	out := make([]byte, 0, 64)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// f4 is the LE Secure Connections confirm value function. [Vol 3, Part H, 2.2.6]
func f4(u, v, x []byte, z byte) ([]byte, error) {
	mac, err := cmacRaw(swapBuf(x), concatBytes(swapBuf(u), swapBuf(v), []byte{z}))
	if err != nil {
		return nil, err
	}
	return swapBuf(mac), nil
}

var f5Salt = []byte{0x6C, 0x88, 0x83, 0x91, 0xAA, 0xF5, 0xA5, 0x38, 0x60, 0x37, 0x0B, 0xDB, 0x5A, 0x60, 0x83, 0xBE}
var f5KeyID = []byte{0x62, 0x74, 0x6C, 0x65} // "btle"
var f5Length = []byte{0x01, 0x00}            // 256 bits

// f5 derives MacKey and LTK from the DH shared secret. [Vol 3, Part H, 2.2.7]
func f5(w, n1, n2, a1, a2 []byte) (macKey, ltk []byte, err error) {
	wBE := swapBuf(w)
	t, err := cmacRaw(f5Salt, wBE)
	if err != nil {
		return nil, nil, err
	}

	n1BE, n2BE := swapBuf(n1), swapBuf(n2)
	a1BE, a2BE := swapBuf(a1), swapBuf(a2)

	msg0 := concatBytes([]byte{0x00}, f5KeyID, n1BE, n2BE, a1BE, a2BE, f5Length)
	msg1 := concatBytes([]byte{0x01}, f5KeyID, n1BE, n2BE, a1BE, a2BE, f5Length)

	mk, err := cmacRaw(t, msg0)
	if err != nil {
		return nil, nil, err
	}
	lk, err := cmacRaw(t, msg1)
	if err != nil {
		return nil, nil, err
	}

	return swapBuf(mk), swapBuf(lk), nil
}

// f6 computes the DHKey Check value. [Vol 3, Part H, 2.2.8]
func f6(w, n1, n2, r, ioCap, a1, a2 []byte) ([]byte, error) {
	msg := concatBytes(swapBuf(n1), swapBuf(n2), swapBuf(r), swapBuf(ioCap), swapBuf(a1), swapBuf(a2))
	mac, err := cmacRaw(swapBuf(w), msg)
	if err != nil {
		return nil, err
	}
	return swapBuf(mac), nil
}

// g2 computes the Numeric Comparison display value. [Vol 3, Part H, 2.2.9]
func g2(u, v, x, y []byte) (int, error) {
	msg := concatBytes(swapBuf(u), swapBuf(v), swapBuf(y))
	mac, err := cmacRaw(swapBuf(x), msg)
	if err != nil {
		return 0, err
	}
	val := binary.BigEndian.Uint32(mac[12:16])
	return int(val % 1000000), nil
}

// c1 is the LE Legacy Pairing confirm value function. [Vol 3, Part H, 2.2.3]
func c1(k, r, preq, pres []byte, iat, rat uint8, ia, ra []byte) ([]byte, error) {
	kBE := swapBuf(k)
	rBE := swapBuf(r)

	p1 := concatBytes(swapBuf(pres), swapBuf(preq), []byte{rat}, []byte{iat})
	p2 := concatBytes([]byte{0, 0, 0, 0}, swapBuf(ia), swapBuf(ra))

	step1, err := aesEncryptBlock(kBE, xorSlice(rBE, p1))
	if err != nil {
		return nil, err
	}
	step2, err := aesEncryptBlock(kBE, xorSlice(step1, p2))
	if err != nil {
		return nil, err
	}
	return swapBuf(step2), nil
}

// s1 derives the Legacy Pairing short term key. [Vol 3, Part H, 2.2.4]
func s1(k, r1, r2 []byte) ([]byte, error) {
	kBE := swapBuf(k)
	r1BE := swapBuf(r1)
	r2BE := swapBuf(r2)
	msg := concatBytes(r1BE[8:16], r2BE[8:16])
	out, err := aesEncryptBlock(kBE, msg)
	if err != nil {
		return nil, err
	}
	return swapBuf(out), nil
}

// legacyTK builds the temporary key used for Legacy Passkey Entry: the
// passkey (0-999999) big-endian encoded into the last 4 bytes of a
// 16-byte buffer, kept in wire order like every other stored key.
func legacyTK(passkey int) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[12:], uint32(passkey))
	return swapBuf(buf)
}
