//go:build linux

package lottery

import "golang.org/x/sys/unix"

// threadID returns the id of the OS thread running the caller
func threadID() (int64, bool) {
	return int64(unix.Gettid()), true
}
