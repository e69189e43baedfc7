package translate

// syscallTables maps arch name (as printed in an audit SYSCALL record's
// arch= field, already hex-decoded to the kernel's AUDIT_ARCH_* mnemonic by
// the caller) to a number->name table. Only the syscalls commonly seen in
// audit trails are populated; for any other number SyscallName reports
// ok=false and the field is left untranslated.
var syscallTables = map[string]map[int64]string{
	"x86_64":  x8664Syscalls,
	"aarch64": aarch64Syscalls,
}

var x8664Syscalls = map[int64]string{
	0:   "read",
	1:   "write",
	2:   "open",
	3:   "close",
	4:   "stat",
	5:   "fstat",
	6:   "lstat",
	9:   "mmap",
	10:  "mprotect",
	11:  "munmap",
	12:  "brk",
	13:  "rt_sigaction",
	14:  "rt_sigprocmask",
	21:  "access",
	22:  "pipe",
	23:  "select",
	32:  "dup",
	33:  "dup2",
	39:  "getpid",
	41:  "socket",
	42:  "connect",
	43:  "accept",
	44:  "sendto",
	45:  "recvfrom",
	49:  "bind",
	50:  "listen",
	54:  "setsockopt",
	56:  "clone",
	57:  "fork",
	58:  "vfork",
	59:  "execve",
	60:  "exit",
	61:  "wait4",
	62:  "kill",
	79:  "getcwd",
	80:  "chdir",
	82:  "rename",
	83:  "mkdir",
	84:  "rmdir",
	85:  "creat",
	86:  "link",
	87:  "unlink",
	88:  "symlink",
	89:  "readlink",
	90:  "chmod",
	92:  "chown",
	101: "ptrace",
	102: "getuid",
	104: "getgid",
	105: "setuid",
	106: "setgid",
	107: "geteuid",
	108: "getegid",
	157: "prctl",
	165: "mount",
	166: "umount2",
	231: "exit_group",
	257: "openat",
	259: "mknodat",
	260: "fchownat",
	261: "futimesat",
	262: "newfstatat",
	263: "unlinkat",
	264: "renameat",
	265: "linkat",
	266: "symlinkat",
	267: "readlinkat",
	268: "fchmodat",
	269: "faccessat",
	322: "execveat",
	435: "clone3",
}

var aarch64Syscalls = map[int64]string{
	63:  "read",
	64:  "write",
	57:  "close",
	80:  "fstat",
	222: "mmap",
	226: "mprotect",
	215: "munmap",
	214: "brk",
	134: "rt_sigaction",
	135: "rt_sigprocmask",
	23:  "dup",
	24:  "dup3",
	172: "getpid",
	198: "socket",
	203: "connect",
	202: "accept",
	206: "sendto",
	207: "recvfrom",
	200: "bind",
	201: "listen",
	208: "setsockopt",
	220: "clone",
	221: "execve",
	93:  "exit",
	260: "wait4",
	129: "kill",
	17:  "getcwd",
	49:  "chdir",
	34:  "mkdirat",
	35:  "unlinkat",
	37:  "linkat",
	36:  "symlinkat",
	78:  "readlinkat",
	53:  "fchmodat",
	50:  "fchdir",
	117: "ptrace",
	174: "getuid",
	176: "getgid",
	146: "setuid",
	144: "setgid",
	175: "geteuid",
	177: "getegid",
	167: "prctl",
	40:  "mount",
	39:  "umount2",
	94:  "exit_group",
	56:  "openat",
	54:  "fchownat",
	79:  "newfstatat",
	281: "execveat",
	435: "clone3",
}

// SyscallName resolves a syscall number for the given arch mnemonic. ok is
// false when the table has no entry, not when the input is malformed —
// callers decide whether to fall back to a synthesized name.
func SyscallName(arch string, nr int64) (string, bool) {
	table, ok := syscallTables[arch]
	if !ok {
		return "", false
	}
	name, ok := table[nr]
	return name, ok
}
