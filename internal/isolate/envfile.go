// SPDX-License-Identifier: MPL-2.0

package isolate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/subosito/gotenv"
)

// loadEnvFile merges the variables of a dotenv file into env. A trailing '?'
// marks the file optional: it is skipped when absent. Relative paths resolve
// against baseDir.
func loadEnvFile(env map[string]string, path, baseDir string) error {
	optional := strings.HasSuffix(path, "?")
	path = strings.TrimSuffix(path, "?")
	if path == "" {
		return errors.New("empty env file path")
	}
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	vars, err := gotenv.StrictParse(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for k, v := range vars {
		env[k] = v
	}
	return nil
}
