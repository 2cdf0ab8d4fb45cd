package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	orderNumberPrefix = "DH"
	orderNumberDigits = 4
)

// NewOrderNumber builds a human readable number like DH2410161234 from the local date.
func NewOrderNumber(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	suffix := "0000"
	if n, err := rand.Int(rand.Reader, big.NewInt(10000)); err == nil {
		suffix = fmt.Sprintf("%0*d", orderNumberDigits, n.Int64())
	}
	return orderNumberPrefix + now.In(loc).Format("060102") + suffix
}
