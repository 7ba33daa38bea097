package shm

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
)

// ErrLinkEmpty is returned by ReadLink while the creator has not written the id yet.
var ErrLinkEmpty = errors.New("link file is empty")

// The link file is the only filesystem-visible name of a region. It holds the raw
// bytes of the mapping id and nothing else, which keeps it interchangeable with
// the link files written by the existing host implementation.

// NewID returns a fresh mapping id of the form "/shmem_<HEX>".
func NewID() string {
	return fmt.Sprintf("/shmem_%X", rand.Uint64())
}

// CreateLink creates the link file at path, failing with an error matching
// fs.ErrExist when some process already bound it.
func CreateLink(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
}

// BindLink writes id into a link file returned by CreateLink and closes it.
func BindLink(f *os.File, id string) error {
	if _, err := f.WriteString(id); err != nil {
		_ = f.Close()
		return fmt.Errorf("write link %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close link %s: %w", f.Name(), err)
	}
	return nil
}

// ReadLink returns the mapping id stored in the link file at path.
func ReadLink(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s", ErrLinkEmpty, path)
	}
	return string(data), nil
}
