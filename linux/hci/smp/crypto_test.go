package smp

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestF4(t *testing.T) {
	u := mustHex(t, "e69d350e480103ccdbfdf4ac1191f4efb9a5f9e9a7832c5e2cbe97f2d203b020")
	v := mustHex(t, "fdc57ff449dd4f6bfb7c9df1c29acb592ae7d4eefbfc0a909abbf6323d8b1855")
	x := mustHex(t, "abae2b71ecb2ffff3e7377d15484cbd5")
	z := byte(0x00)
	expected := mustHex(t, "2d8774a9bea1edf11cbda907f116c9f2")

	out, err := f4(u, v, x, z)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, expected) {
		t.Fatalf("f4 mismatch:\ngot  %s\nwant %s", hex.EncodeToString(out), hex.EncodeToString(expected))
	}
}

func TestF5(t *testing.T) {
	w := mustHex(t, "98a6bf73f3348d86f166f8b4136b79999b7d390aa610103405adc857a33402ec")
	n1 := mustHex(t, "abae2b71ecb2ffff3e7377d15484cbd5")
	n2 := mustHex(t, "cfc43dfff78365216e5fa725cce7e8a6")
	a1 := mustHex(t, "cebf373712560000")[:7]
	a2 := mustHex(t, "c1cf2d7013a70000")[:7]
	expLTK := mustHex(t, "380a7594b522059823cdd76911798669")
	expMacKey := mustHex(t, "206e63ce206a3ffd024a08a176f16529")

	mk, ltk, err := f5(w, n1, n2, a1, a2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(mk, expMacKey) {
		t.Fatalf("f5 macKey mismatch:\ngot  %s\nwant %s", hex.EncodeToString(mk), hex.EncodeToString(expMacKey))
	}
	if !bytes.Equal(ltk, expLTK) {
		t.Fatalf("f5 ltk mismatch:\ngot  %s\nwant %s", hex.EncodeToString(ltk), hex.EncodeToString(expLTK))
	}
}

func TestF6(t *testing.T) {
	w := mustHex(t, "206e63ce206a3ffd024a08a176f16529")
	n1 := mustHex(t, "abae2b71ecb2ffff3e7377d15484cbd5")
	n2 := mustHex(t, "cfc43dfff78365216e5fa725cce7e8a6")
	r := mustHex(t, "c80f2d0cd242da0854bb53b43b34a312")
	ioCap := mustHex(t, "020101")
	a1 := mustHex(t, "cebf373712560000")[:7]
	a2 := mustHex(t, "c1cf2d7013a70000")[:7]
	expected := mustHex(t, "618f95da090b6cd2c5e8d09c9873c4e3")

	out, err := f6(w, n1, n2, r, ioCap, a1, a2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, expected) {
		t.Fatalf("f6 mismatch:\ngot  %s\nwant %s", hex.EncodeToString(out), hex.EncodeToString(expected))
	}
}

func TestG2(t *testing.T) {
	u := mustHex(t, "e69d350e480103ccdbfdf4ac1191f4efb9a5f9e9a7832c5e2cbe97f2d203b020")
	v := mustHex(t, "fdc57ff449dd4f6bfb7c9df1c29acb592ae7d4eefbfc0a909abbf6323d8b1855")
	x := mustHex(t, "abae2b71ecb2ffff3e7377d15484cbd5")
	y := mustHex(t, "cfc43dfff78365216e5fa725cce7e8a6")

	val, err := g2(u, v, x, y)
	if err != nil {
		t.Fatal(err)
	}
	if val != 0x2f9ed5ba%1000000 {
		t.Fatalf("g2 mismatch: got %d", val)
	}
}

func TestC1LegacyConfirm(t *testing.T) {
	preq := []byte{pairingRequest, 0x03, 0x00, 0x09, 16, 0x05, 0x07}
	pres := []byte{pairingResponse, 0x03, 0x00, 0x01, 16, 0x01, 0x03}

	la := []byte{0x98, 0x5a, 0x2f, 0x93, 0x54, 0x94}
	lat := uint8(0x00)
	lrand := mustHex(t, "45e39d7a7bb5f81e979b516757ecb2dc")

	ra := []byte{0x98, 0xd3, 0x45, 0x85, 0x47, 0xd8}
	rat := uint8(0x01)
	rrand := mustHex(t, "e6d5505348fa4188acfb209860fd9524")

	expMConfirm := mustHex(t, "ff5985f3216bb8f0d9812e700a5a6477")
	expRConfirm := mustHex(t, "10e6a8b112adf45c47468c6ac0f31294")

	tk := make([]byte, 16)

	confirm, err := c1(tk, lrand, preq, pres, lat, rat, la, ra)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(confirm, expMConfirm) {
		t.Fatalf("c1 initiator confirm mismatch:\ngot  %s\nwant %s", hex.EncodeToString(confirm), hex.EncodeToString(expMConfirm))
	}

	confirm, err = c1(tk, rrand, preq, pres, lat, rat, la, ra)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(confirm, expRConfirm) {
		t.Fatalf("c1 responder confirm mismatch:\ngot  %s\nwant %s", hex.EncodeToString(confirm), hex.EncodeToString(expRConfirm))
	}
}

func TestC1LegacyConfirm2(t *testing.T) {
	preq := []byte{pairingRequest, 0x03, 0x00, 0x09, 16, 0x01, 0x01}
	pres := []byte{pairingResponse, 0x03, 0x00, 0x01, 16, 0x01, 0x01}

	la := []byte{0x98, 0x5a, 0x2f, 0x93, 0x54, 0x94}
	lat := uint8(0x00)
	lrand := mustHex(t, "5eb83e928a5ad801d99bd6b9cf339167")

	ra := []byte{0x98, 0xd3, 0x45, 0x85, 0x47, 0xd8}
	rat := uint8(0x01)
	rrand := mustHex(t, "8c101aba0f623e3450dfb817a1e0b425")

	expMConfirm := mustHex(t, "e2e6907164813041a28b1a399babe1d0")
	expRConfirm := mustHex(t, "0acb5b32c7f60851eaa96649b7effcce")

	tk := make([]byte, 16)

	confirm, err := c1(tk, lrand, preq, pres, lat, rat, la, ra)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(confirm, expMConfirm) {
		t.Fatalf("c1 initiator confirm mismatch:\ngot  %s\nwant %s", hex.EncodeToString(confirm), hex.EncodeToString(expMConfirm))
	}

	confirm, err = c1(tk, rrand, preq, pres, lat, rat, la, ra)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(confirm, expRConfirm) {
		t.Fatalf("c1 responder confirm mismatch:\ngot  %s\nwant %s", hex.EncodeToString(confirm), hex.EncodeToString(expRConfirm))
	}
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex literal %q: %v", s, err)
	}
	return b
}
