//go:build !unix

package job

import "syscall"

func detachAttr() *syscall.SysProcAttr {
	return nil
}
