package engine

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/dshills/FolioDB/internal/errors"
)

// fileLock enforces the single-writer model across processes: a sibling
// lock file created exclusively, holding an owner token and the PID.
type fileLock struct {
	path  string
	token string
}

// acquireLock creates <path>.lock. A pre-existing lock file means another
// handle owns the database.
func acquireLock(path string) (*fileLock, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.NotAccessibleError(path, err).
				WithDetailf("lock file %q exists", lockPath).
				WithHint("Close the other handle, or remove a stale lock file left by a crashed process.")
		}
		return nil, errors.NotAccessibleError(lockPath, err)
	}

	token := uuid.NewString()
	_, werr := fmt.Fprintf(f, "%s %d\n", token, os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(lockPath)
		return nil, errors.NotAccessibleError(lockPath, fmt.Errorf("cannot write lock file"))
	}
	return &fileLock{path: lockPath, token: token}, nil
}

// release removes the lock file. Safe on a nil lock.
func (l *fileLock) release() {
	if l == nil {
		return
	}
	_ = os.Remove(l.path)
}
