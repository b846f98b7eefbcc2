//go:build !linux

package lottery

func threadID() (int64, bool) { return 0, false }
