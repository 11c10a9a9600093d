// Package kflog is the ambient logging convention shared by every package
// in this module: a standard library *log.Logger prefixed with a
// bracketed component tag, e.g. kflog.Tagged("[Session]").
package kflog

import (
	"log"
	"os"
)

// Tagged returns a logger that prefixes every line with tag (conventionally
// "[Component]") followed by the standard date/time flags.
func Tagged(tag string) *log.Logger {
	return log.New(os.Stderr, tag+" ", log.LstdFlags)
}
