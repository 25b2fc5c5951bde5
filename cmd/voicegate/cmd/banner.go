package cmd

import (
	"fmt"
	"io"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

const banner = `
 __   __    _          ___       _
 \ \ / /__ (_) __ ___ / __|__ _ | |_ ___
  \ V / _ \| |/ _/ -_) (_ / _' ||  _/ -_)
   \_/\___/|_|\__\___|\___\__,_| \__\___|
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Voice Authentication Client - Version %s\x1b[0m\n\n", Version)
}
