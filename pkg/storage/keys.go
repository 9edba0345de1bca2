package storage

import "encoding/binary"

// Key schema for the Pebble tape store:
//
//	sess:<session>              → SessionMeta (gob)
//	tape:<session>:<8-byte seq> → exchange.Record (JSON)
//	report:<session>            → session report (JSON)
//
// Sequence numbers are big-endian so a prefix scan returns the tape in
// order.
const (
	prefixSession = "sess:"
	prefixTape    = "tape:"
	prefixReport  = "report:"
)

func sessionKey(sessionID string) []byte {
	return []byte(prefixSession + sessionID)
}

func tapePrefix(sessionID string) []byte {
	return []byte(prefixTape + sessionID + ":")
}

func tapeKey(sessionID string, seq uint64) []byte {
	return append(tapePrefix(sessionID), seqKey(seq)...)
}

func reportKey(sessionID string) []byte {
	return []byte(prefixReport + sessionID)
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
