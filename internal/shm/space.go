package shm

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

const devShmDir = "/dev/shm"

// CanCreateOnDevShm reports whether size bytes fit into the tmpfs behind path.
// Only paths under /dev/shm on linux are checked; everything else reports true.
func CanCreateOnDevShm(size uint64, path string) bool {
	if runtime.GOOS != "linux" || !strings.HasPrefix(path, devShmDir+"/") {
		return true
	}
	stat, err := disk.Usage(devShmDir)
	if err != nil {
		// let open/ftruncate report the real failure
		return true
	}
	return stat.Free >= size
}
