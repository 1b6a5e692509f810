// Package dblock serializes test packages that share one Postgres database.
// go test runs packages in parallel, and two packages truncating the same
// tables would trample each other's fixtures.
package dblock

import (
	"net"
	"time"
)

// A loopback listener doubles as a cross-process mutex: whichever test
// binary binds the port holds the database until it releases.
const lockAddr = "127.0.0.1:45433"

const retryEvery = 50 * time.Millisecond

// Acquire blocks until the database lock is free and returns the release
// function. Releasing twice is harmless.
func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err != nil {
			time.Sleep(retryEvery)
			continue
		}
		return func() { _ = ln.Close() }
	}
}
