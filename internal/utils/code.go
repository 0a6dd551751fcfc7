package utils

import "crypto/rand"

// codeAlphabet deliberately omits 0/O and 1/I so codes survive being
// read aloud at a front desk.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const codeLength = 10

// NewReservationCode returns a random human-readable reservation code,
// e.g. "7KQ2MWPX4R".  Codes are the externally shareable identifier for
// a reservation, distinct from the internal numeric id; uniqueness is
// enforced by the database column.
func NewReservationCode() (string, error) {
    buf := make([]byte, codeLength)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    out := make([]byte, codeLength)
    for i, b := range buf {
        out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
    }
    return string(out), nil
}
