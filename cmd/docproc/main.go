// Command docproc runs the document structuring pipeline over local files.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "docproc",
	Short:         "Extract, classify and structure documents",
	Long:          "docproc extracts text (with OCR fallback), entities and categories from documents and renders legal documents as Akoma Ntoso XML.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
