// Command kansoctl evaluates habits described in a YAML file without a
// server: due dates, streaks and month calendars.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "kansoctl:", err)
		os.Exit(1)
	}
}
