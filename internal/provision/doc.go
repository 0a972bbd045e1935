// Package provision guarantees that a target directory holds a fixed set of
// required dataset files.
//
// The Provisioner creates the directory, checks presence, and when files are
// missing walks an ordered list of acquisition methods (Kaggle download, Git
// LFS pull). Each method runs behind an isolating boundary: returned errors
// and panics become attempt results, never aborts. Presence is re-checked
// after every attempt so a method that reports failure but still produced the
// files counts as success, and one that reports success without producing
// them does not.
//
// Ensure never returns an error. Callers inspect Outcome and map a failed
// outcome to ErrDataUnavailable (exit status 2) after printing remediation
// with WriteRemediation.
package provision
