//go:build debug

package channel

import (
	"github.com/davecgh/go-spew/spew"

	"github.com/student/mdnsd/internal/wire"
)

// dumpMessage dumps a decoded/encoded mDNS message to stderr. Only compiled
// in with -tags debug, mirroring dissolve's own server_debug.go build-tag
// split and its server/multicast.go spew.Dump(q)/spew.Dump(uc)/spew.Dump(mc)
// calls.
func dumpMessage(label string, msg *wire.Message) {
	spew.Dump(label, msg)
}
