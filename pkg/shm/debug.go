package shm

import (
	"context"
	"fmt"
	"io"

	"github.com/srediag/shmregion/internal/logging"
)

var internalLogger = logging.New("shm", nil)

// Log levels accepted by SetLogLevel.
const (
	LogLevelTrace   = logging.LevelTrace
	LogLevelDebug   = logging.LevelDebug
	LogLevelInfo    = logging.LevelInfo
	LogLevelWarn    = logging.LevelWarn
	LogLevelError   = logging.LevelError
	LogLevelNoPrint = logging.LevelNoPrint
)

// SetLogLevel used to change the internal logger's level and the default level is Warning.
// The process env `SHMREGION_LOG_LEVEL` also could set log level
func SetLogLevel(l int) {
	logging.SetLevel(l)
}

// DebugRegionDetail prints the state of the region named by config to w without
// creating anything.
func DebugRegionDetail(w io.Writer, config *Config) error {
	if config == nil {
		config = DefaultConfig()
	}
	c := *config
	c.Policy = PolicyOpenOnly
	h, err := Open(context.Background(), &c)
	if err != nil {
		return err
	}
	defer h.Release() //nolint:errcheck
	if !h.Present() {
		_, err = fmt.Fprintf(w, "link:%s present:false\n", c.LinkPath())
		return err
	}
	r := h.Region()
	_, err = fmt.Fprintf(w, "link:%s present:true id:%s capacity:%#x mapped:%#x ownership:%s\n",
		r.LinkPath(), r.ID(), r.Capacity(), r.MappedSize(), r.Ownership())
	return err
}
