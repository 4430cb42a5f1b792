// Command recipectl extracts a recipe from a URL, a saved HTML page or an
// image and prints the scored candidate as JSON.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
