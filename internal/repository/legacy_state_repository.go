package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ReadLegacyState returns the content of the single-calendar state file
// written by older deployments. found is false when the file is absent.
func ReadLegacyState(path string) (data []byte, found bool, err error) {
	if path == "" {
		return nil, false, nil
	}
	data, err = os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read legacy state %s: %w", path, err)
	}
	return data, true, nil
}
