// Package services defines shared utilities consumed by the acquisition
// method integrations (Kaggle, Git LFS).
//
// Key responsibilities:
//   - Context helpers that stamp the acquisition method and run identifier
//     for logging.
//   - Structured error markers plus the Wrap helper. ErrUnavailable separates
//     "this capability cannot run here" from genuine execution failures so the
//     provisioner can downgrade both without losing the distinction.
//
// Integrations live in subpackages and depend only on this package, never on
// the provisioner that drives them.
package services
