// Package item defines the normalized unit every source produces and the
// line-delimited JSON writer that hands items downstream.
package item

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Item is one normalized upstream record. Optional fields are omitted from
// the JSON form when unset. Tags distinguishes nil (absent) from empty.
type Item struct {
	ID     string   `json:"id"`
	Title  string   `json:"title,omitempty"`
	Body   string   `json:"body,omitempty"`
	Link   string   `json:"link,omitempty"`
	Author string   `json:"author,omitempty"`
	Time   int64    `json:"time,omitempty"`
	Tags   []string `json:"tags,omitzero"`
	TTL    int64    `json:"ttl,omitempty"`
}

// HashID derives a stable id from a natural key.
func HashID(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// RandomID returns a random 64-bit token as 16 hex characters.
func RandomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%016x", binary.BigEndian.Uint64(b[:]))
}
