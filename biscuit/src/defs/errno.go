package defs

/// Err_t is the kernel-wide error currency. A negative value is an errno;
/// zero means success. Callers that need a bare bool test err.Rc() < 0.
type Err_t int

/// Rc returns the raw integer value, for callers that must hand it back
/// across a syscall ABI boundary.
func (e Err_t) Rc() int {
	return int(e)
}

/// Tid_t identifies a task (thread of execution) for page-fault delivery
/// and per-task stack accounting.
type Tid_t int

// Errno constants. Negative of these values is what callers return; the
// constants themselves are positive, matching the teacher's convention
// (see vm/as.go, circbuf.go: "-defs.ENOMEM").
const (
	EPERM        Err_t = 1
	ENOENT       Err_t = 2
	ESRCH        Err_t = 3
	EINTR        Err_t = 4
	EIO          Err_t = 5
	ENXIO        Err_t = 6
	E2BIG        Err_t = 7
	ENOEXEC      Err_t = 8
	EBADF        Err_t = 9
	ECHILD       Err_t = 10
	EAGAIN       Err_t = 11
	ENOMEM       Err_t = 12
	EACCES       Err_t = 13
	EFAULT       Err_t = 14
	ENOTBLK      Err_t = 15
	EBUSY        Err_t = 16
	EEXIST       Err_t = 17
	EXDEV        Err_t = 18
	ENODEV       Err_t = 19
	ENOTDIR      Err_t = 20
	EISDIR       Err_t = 21
	EINVAL       Err_t = 22
	ENFILE       Err_t = 23
	EMFILE       Err_t = 24
	ENOTTY       Err_t = 25
	EFBIG        Err_t = 27
	ENOSPC       Err_t = 28
	ESPIPE       Err_t = 29
	EROFS        Err_t = 30
	EMLINK       Err_t = 31
	EPIPE        Err_t = 32
	ENAMETOOLONG Err_t = 36
	ENOSYS       Err_t = 38
	ENOTEMPTY    Err_t = 39
	ETIMEDOUT    Err_t = 110
	EALREADY     Err_t = 114

	// Kernel-internal codes with no POSIX analogue, numbered past the
	// standard errno range so they never collide with one.
	ENOHEAP Err_t = 1000 /// kernel heap exhausted, cannot grow further
	EPAUSE  Err_t = 1001 /// operation interrupted, safe to restart
)

// File-descriptor open flags and whence values. No package in this tree
// references them.
const (
	O_RDONLY = 0
	O_WRONLY = 1
	O_RDWR   = 2
	O_CREAT  = 0x40

	SEEK_SET = 0
	SEEK_CUR = 1
	SEEK_END = 2
)
