// Command memobench runs a synthetic memoization workload against the cache
// and exposes Prometheus metrics and optional pprof endpoints.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
