package protocol

import "encoding/binary"

// EncodeAuthFrame builds the body of an 802.11 AUTH frame: algorithm,
// transaction sequence number, status, then any algorithm-specific
// fields (here, the raw SAE commit/confirm payload), per spec.md §6's
// AUTH frame path for SAE.
func EncodeAuthFrame(alg AuthAlg, trans SAETransaction, status StatusCode, fields []byte) []byte {
	b := make([]byte, 6, 6+len(fields))
	binary.LittleEndian.PutUint16(b[0:2], uint16(alg))
	binary.LittleEndian.PutUint16(b[2:4], uint16(trans))
	binary.LittleEndian.PutUint16(b[4:6], uint16(status))
	return append(b, fields...)
}

// ErrAuthFrameTooShort is returned by DecodeAuthFrame when the body
// doesn't contain the fixed 6-byte algorithm/transaction/status header.
type ErrAuthFrameTooShort struct{ Len int }

func (e ErrAuthFrameTooShort) Error() string {
	return "auth frame body shorter than 6-byte header"
}

// DecodeAuthFrame splits an AUTH frame body into its fixed header and the
// algorithm-specific trailing fields.
func DecodeAuthFrame(body []byte) (alg AuthAlg, trans SAETransaction, status StatusCode, fields []byte, err error) {
	if len(body) < 6 {
		return 0, 0, 0, nil, ErrAuthFrameTooShort{Len: len(body)}
	}
	alg = AuthAlg(binary.LittleEndian.Uint16(body[0:2]))
	trans = SAETransaction(binary.LittleEndian.Uint16(body[2:4]))
	status = StatusCode(binary.LittleEndian.Uint16(body[4:6]))
	fields = body[6:]
	return alg, trans, status, fields, nil
}
