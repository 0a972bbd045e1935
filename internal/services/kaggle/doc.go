// Package kaggle downloads the dataset archive from the Kaggle REST API and
// copies the required members into the target directory.
//
// Credentials come from the configuration (which already folds in the
// KAGGLE_USERNAME and KAGGLE_KEY environment variables) or from kaggle.json
// in the Kaggle config directory. Without credentials the method reports
// itself unavailable rather than failing.
//
// Downloads land in a per-dataset cache directory. The archive and the
// extracted members are reused by later runs unless a forced download is
// requested.
package kaggle
