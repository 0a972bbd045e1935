package provision

import (
	"fmt"
	"io"
	"strings"
)

// WriteRemediation prints the manual routes for obtaining the files once every
// acquisition method has failed.
func WriteRemediation(w io.Writer, targetDir string, files []string) error {
	var b strings.Builder
	b.WriteString("\nCould not make the dataset files available automatically.\n")
	b.WriteString("Please use one of the following options:\n")
	b.WriteString("  1. Install the Kaggle client and set up Kaggle credentials\n")
	b.WriteString("     (KAGGLE_USERNAME and KAGGLE_KEY, or ~/.kaggle/kaggle.json), then run again.\n")
	b.WriteString("  2. Ensure Git LFS is installed ('git lfs install'), then run 'git lfs pull'.\n")
	fmt.Fprintf(&b, "  3. Manually place the following files into the '%s' folder:\n", targetDir)
	for _, file := range files {
		fmt.Fprintf(&b, "     - %s\n", file)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
