// Package main hosts the datasetup CLI entrypoint and command graph.
//
// Running datasetup with no subcommand (or `datasetup ensure`) makes sure the
// dataset files the recommender needs are present in the data directory,
// trying a Kaggle download first and a Git LFS pull second. When both fail it
// prints manual instructions and exits with status 2 so scripts can tell
// "data unavailable" apart from ordinary errors (status 1).
//
// The remaining commands report on the environment: status shows file
// presence and method availability, check runs preflight checks, history
// lists past runs, and config scaffolds or validates the configuration file.
package main
