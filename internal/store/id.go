package store

import (
	"math/rand"
	"strconv"
	"time"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID produces a short Zettelkasten-style note ID: the last two
// digits of the current Unix time followed by three random characters.
// Uniqueness is probabilistic, not guaranteed; the notes table enforces it.
func GenerateID() string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	ts = ts[len(ts)-2:]
	b := make([]byte, 3)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}
	return ts + string(b)
}
