package main

import (
	"fmt"
	"os"

	"github.com/trimly-app/trimly-saas/apps/cli/root"
)

func main() {
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
