package files

import (
	"fmt"
	"os"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
)

// Wipe deletes every path, reporting each action through report. In
// preview mode nothing is deleted.
func Wipe(paths []string, preview bool, report func(string)) error {
	for _, p := range paths {
		if preview {
			report("Would delete " + p)
			continue
		}
		report("Deleting " + p)
		if err := os.Remove(p); err != nil {
			return fmt.Errorf("%w: deleting %s: %v", kerrors.ErrIO, p, err)
		}
	}
	return nil
}
