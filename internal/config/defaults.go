package config

// Acquisition method identifiers accepted in provision.methods.
const (
	MethodKaggle = "kaggle"
	MethodLFS    = "lfs"
)

const (
	defaultDataDir          = "data"
	defaultStateDir         = "~/.local/share/datasetup"
	defaultRepoDir          = "."
	defaultKaggleDataset    = "undefinenull/million-song-dataset-spotify-lastfm"
	defaultKaggleBaseURL    = "https://www.kaggle.com/api/v1"
	defaultKaggleTimeout    = 1800
	defaultKaggleConfigDir  = "~/.kaggle"
	defaultGitBinary        = "git"
	defaultLFSTimeout       = 900
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	musicInfoFile           = "Music Info.csv"
	listeningHistoryFile    = "User Listening History.csv"
)

// DefaultRequiredFiles returns the filenames the recommender needs.
func DefaultRequiredFiles() []string {
	return []string{musicInfoFile, listeningHistoryFile}
}

// DefaultMethods returns the acquisition methods in their default priority order.
func DefaultMethods() []string {
	return []string{MethodKaggle, MethodLFS}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			CacheDir: defaultCacheDir(),
			StateDir: defaultStateDir,
			RepoDir:  defaultRepoDir,
		},
		Dataset: Dataset{
			RequiredFiles: DefaultRequiredFiles(),
		},
		Kaggle: Kaggle{
			Enabled:        true,
			Dataset:        defaultKaggleDataset,
			BaseURL:        defaultKaggleBaseURL,
			TimeoutSeconds: defaultKaggleTimeout,
		},
		LFS: LFS{
			Enabled:             true,
			GitBinary:           defaultGitBinary,
			IncludeOnlyRequired: true,
			TimeoutSeconds:      defaultLFSTimeout,
		},
		Provision: Provision{
			Methods:            DefaultMethods(),
			LFSPointersMissing: true,
			History:            true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RunLogs:       true,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
