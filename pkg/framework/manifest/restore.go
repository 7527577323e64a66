package manifest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	apperrors "github.com/garunski/cartridge-fixture/pkg/framework/errors"
)

// Restore copies backup over live when a backup exists. It reports whether a
// copy happened. A missing backup is not an error; any other failure is.
func Restore(backup, live string) (bool, error) {
	info, err := os.Stat(backup)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.WrapStorage(err, fmt.Sprintf("stat manifest backup %s", backup))
	}
	if info.IsDir() {
		return false, fmt.Errorf("%w: manifest backup %s is a directory", apperrors.ErrInvalid, backup)
	}

	if err := copyFile(backup, live, info.Mode().Perm()); err != nil {
		return false, apperrors.WrapStorage(err, fmt.Sprintf("restore %s from %s", live, backup))
	}
	return true, nil
}

// copyFile overwrites dst with src's content. dst's directory must exist.
func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := os.Stat(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
