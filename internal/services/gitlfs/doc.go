// Package gitlfs fetches LFS-tracked dataset files by running `git lfs pull`
// in the repository that contains the target directory.
//
// The method is unavailable when git or the git-lfs extension is missing, or
// when no repository can be located. Command execution goes through the
// Executor interface so tests can script git's responses.
package gitlfs
