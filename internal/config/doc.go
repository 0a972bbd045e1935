// Package config loads, normalizes, and validates datasetup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// KAGGLE_USERNAME, KAGGLE_KEY and KAGGLE_CONFIG_DIR. The Config type
// centralizes the target data directory, the required filenames and the
// settings of every acquisition method so the CLI discovers them in one pass.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, a de-duplicated required file list, and clear validation
// errors.
package config
