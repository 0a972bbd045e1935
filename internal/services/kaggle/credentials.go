package kaggle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"datasetup/internal/config"
	"datasetup/internal/services"
)

const credentialsFile = "kaggle.json"

// Credentials authenticate against the Kaggle API.
type Credentials struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// Valid reports whether both parts are set.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Username) != "" && strings.TrimSpace(c.Key) != ""
}

// ResolveCredentials returns the credentials and a label for where they came
// from. Missing credentials yield an error wrapping services.ErrUnavailable.
func ResolveCredentials(cfg config.Kaggle) (Credentials, string, error) {
	fromConfig := Credentials{Username: strings.TrimSpace(cfg.Username), Key: strings.TrimSpace(cfg.Key)}
	if fromConfig.Valid() {
		return fromConfig, "config", nil
	}

	path := filepath.Join(cfg.ConfigDir, credentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, "", services.Unavailable("kaggle", "no credentials configured (set KAGGLE_USERNAME and KAGGLE_KEY or create "+path+")", nil)
		}
		return Credentials{}, "", services.Unavailable("kaggle", "read credentials file", err)
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, "", services.Unavailable("kaggle", "parse "+path, err)
	}
	creds.Username = strings.TrimSpace(creds.Username)
	creds.Key = strings.TrimSpace(creds.Key)
	if !creds.Valid() {
		return Credentials{}, "", services.Unavailable("kaggle", fmt.Sprintf("%s lacks username or key", path), nil)
	}
	return creds, path, nil
}
