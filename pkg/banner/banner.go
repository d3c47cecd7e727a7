package banner

import (
	"fmt"
	"os"
)

const art = `
     _           _        _           _
  __| | ___  ___| | _____| |__   __ _| |_
 / _` + "`" + ` |/ _ \/ __| |/ / __| '_ \ / _` + "`" + ` | __|
| (_| |  __/\__ \   < (__| | | | (_| | |_
 \__,_|\___||___/_|\_\___|_| |_|\__,_|\__|
`

// Print writes the startup banner and a short endpoint summary to stdout.
func Print(version, addr, dbPath, configSource string) {
	fmt.Fprint(os.Stdout, art)
	fmt.Fprintf(os.Stdout, "\ndeskchat %s\n", version)
	fmt.Fprintf(os.Stdout, "  listen:  http://%s\n", addr)
	fmt.Fprintf(os.Stdout, "  db:      %s\n", dbPath)
	fmt.Fprintf(os.Stdout, "  config:  %s\n", configSource)
	fmt.Fprintf(os.Stdout, "  docs:    http://%s/docs/\n", addr)
	fmt.Fprintf(os.Stdout, "  metrics: http://%s/metrics\n\n", addr)
}
