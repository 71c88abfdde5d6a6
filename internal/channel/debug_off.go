//go:build !debug

package channel

import "github.com/student/mdnsd/internal/wire"

// dumpMessage is a no-op without -tags debug; see debug_on.go.
func dumpMessage(string, *wire.Message) {}
