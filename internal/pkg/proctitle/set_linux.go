//go:build linux

package proctitle

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// taskCommLen is TASK_COMM_LEN including the trailing NUL.
const taskCommLen = 16

// Set renames the process in ps and top output via PR_SET_NAME. The kernel
// keeps at most 15 bytes.
func Set(title string) error {
	title, err := prepare(title)
	if err != nil {
		return err
	}
	var comm [taskCommLen]byte
	copy(comm[:taskCommLen-1], title)
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&comm[0])), 0, 0, 0)
}
