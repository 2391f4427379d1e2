package smp

import (
	"bytes"
	"encoding/binary"

	"github.com/rigado/ble/linux/hci"
)

// CidSMP is the fixed L2CAP channel the Security Manager protocol runs
// over. [Vol 3, Part A, 2.1]
const CidSMP = uint16(0x0006)

func buildPairingReq(cfg hci.SmpConfig) []byte {
	return []byte{pairingRequest, cfg.IoCap, cfg.OobFlag, cfg.AuthReq, cfg.MaxKeySize, cfg.InitKeyDist, cfg.RespKeyDist}
}

func buildPairingRsp(cfg hci.SmpConfig) []byte {
	return []byte{pairingResponse, cfg.IoCap, cfg.OobFlag, cfg.AuthReq, cfg.MaxKeySize, cfg.InitKeyDist, cfg.RespKeyDist}
}

func parseSmpConfig(pdu []byte) (hci.SmpConfig, error) {
	if len(pdu) != 7 {
		return hci.SmpConfig{}, newFailure(ReasonInvalidParameters, ErrInvalidParameters)
	}
	return hci.SmpConfig{
		IoCap:       pdu[1],
		OobFlag:     pdu[2],
		AuthReq:     pdu[3],
		MaxKeySize:  pdu[4],
		InitKeyDist: pdu[5],
		RespKeyDist: pdu[6],
	}, nil
}

// sendPDU frames pdu as an L2CAP B-frame addressed to CidSMP and writes
// it through the session's transport port.
func sendPDU(tx L2CAPSender, pdu []byte) error {
	buf := bytes.NewBuffer(make([]byte, 0, 4+len(pdu)))
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(pdu))); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, CidSMP); err != nil {
		return err
	}
	buf.Write(pdu)
	_, err := tx.WritePDU(buf.Bytes())
	return err
}

func buildFailed(reason byte) []byte {
	return []byte{pairingFailed, reason}
}

func buildPairingRandom(r []byte) []byte {
	return append([]byte{pairingRandom}, r...)
}

func buildPairingConfirm(c []byte) []byte {
	return append([]byte{pairingConfirm}, c...)
}

func buildPublicKey(xy []byte) []byte {
	return append([]byte{pairingPublicKey}, xy...)
}

func buildDHKeyCheck(e []byte) []byte {
	return append([]byte{pairingDHKeyCheck}, e...)
}

func buildEncryptionInformation(ltk []byte) []byte {
	return append([]byte{encryptionInformation}, ltk...)
}

func buildMasterIdentification(ediv uint16, rand uint64) []byte {
	out := make([]byte, 11)
	out[0] = masterIdentification
	binary.LittleEndian.PutUint16(out[1:3], ediv)
	binary.LittleEndian.PutUint64(out[3:11], rand)
	return out
}

func buildIdentityInformation(irk []byte) []byte {
	return append([]byte{identityInformation}, irk...)
}

func buildIdentityAddrInformation(addrType uint8, addr []byte) []byte {
	out := make([]byte, 8)
	out[0] = identityAddrInformation
	out[1] = addrType
	copy(out[2:], addr)
	return out
}

func buildSigningInformation(csrk []byte) []byte {
	return append([]byte{signingInformation}, csrk...)
}

func buildSecurityRequest(authReq byte) []byte {
	return []byte{securityRequest, authReq}
}
