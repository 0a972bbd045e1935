// Package preflight provides readiness checks for the filesystem paths and
// acquisition backends datasetup depends on.
//
// These checks run in two contexts:
//   - The CLI "datasetup check" command calls RunAll and CheckSystemDeps to
//     report everything that could make a provisioning run fail.
//   - The CLI "datasetup status" command uses ProbeMethods to show which
//     acquisition methods can run in this environment.
//
// Each backend check is gated by its config toggle; disabled methods are
// skipped.
package preflight
