package pool

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
)

const (
	resultFilePrefix = "parallel_map_"
	inputFilePrefix  = "parallel_map_in_"
)

// payload wraps every value written to a transport file so that nil pointers,
// nil slices and zero values round-trip like any other value.
type payload[T any] struct {
	Value T
}

// reserveFile atomically creates an empty, uniquely named file in dir and
// returns its path. An empty dir means os.TempDir().
func reserveFile(dir, prefix string) (string, error) {
	f, err := os.CreateTemp(dir, prefix+"*")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// writeValue encodes v into the file at path, which must already exist.
// The file is never created here: a coordinator that has given up on a worker
// removes its files, and a late write must not resurrect them.
func writeValue[T any](path string, v T) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := gob.NewEncoder(f).Encode(payload[T]{Value: v}); err != nil {
		return err
	}
	return f.Sync()
}

// readValue decodes exactly one value from the file at path.
func readValue[T any](path string) (T, error) {
	var p payload[T]

	f, err := os.Open(path)
	if err != nil {
		return p.Value, err
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(&p); err != nil {
		return p.Value, err
	}
	return p.Value, nil
}

// takeResult reads a worker's result and removes the file. The file is removed
// even when decoding fails, so a result file is never read twice.
func takeResult[R any](path string) (R, error) {
	v, err := readValue[R](path)
	rmErr := os.Remove(path)

	if err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrResultDecode, path, err)
	}
	if rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		return v, fmt.Errorf("remove result file %s: %w", path, rmErr)
	}
	return v, nil
}

// removeFiles deletes transport files, ignoring ones that are already gone.
func removeFiles(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.Remove(p)
	}
}
