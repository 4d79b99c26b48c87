// Command cvclass trains résumé category classifiers and classifies
// résumé files with them.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
