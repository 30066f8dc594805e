//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned when another monitor process is found.
var ErrAlreadyRunning = errors.New("another instance is already running")

// processLister is ps.Processes, replaceable in tests.
type processLister func() ([]ps.Process, error)

// FindInstances returns the pids of other processes running the executable.
func FindInstances(executable string) ([]int, error) {
	return findInstances(ps.Processes, executable, os.Getpid())
}

func findInstances(list processLister, executable string, self int) ([]int, error) {
	processList, err := list()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var pids []int

	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if !strings.EqualFold(process.Executable(), executable) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}

// EnsureSingleInstance fails when another process runs the current executable.
// Two monitors sharing a broker client id would disconnect each other forever.
func EnsureSingleInstance() error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	pids, err := FindInstances(filepath.Base(executable))
	if err != nil {
		return err
	}

	if len(pids) > 0 {
		return fmt.Errorf("%w: pids %v", ErrAlreadyRunning, pids)
	}

	return nil
}
