package record

// knownTypes is the set of record type tags this parser has first-class
// knowledge of. It covers the handful with special reassembly (EXECVE) or
// nested-mapping fields (SOCKADDR), plus the bulk of the ~80-odd kernel
// audit record types that carry nothing beyond generic key/value pairs —
// tagging them Known still matters because filter/label rules and the
// enricher's per-type JSON block need to tell "a type we recognize, with
// plain fields" apart from "a type we've truly never seen". Anything not
// in this set downgrades to a generic mapping per §4.2.
var knownTypes = map[string]bool{
	"SYSCALL": true, "EXECVE": true, "PATH": true, "CWD": true,
	"SOCKADDR": true, "PROCTITLE": true, "EOE": true,

	"CONFIG_CHANGE": true, "USER_LOGIN": true, "USER_AUTH": true,
	"USER_ACCT": true, "USER_CMD": true, "USER_START": true, "USER_END": true,
	"USER_ERR": true, "USER_CHAUTHTOK": true, "USER_MGMT": true,
	"USER_ROLE_CHANGE": true, "USER_LABELED_EXPORT": true,
	"USER_UNLABELED_EXPORT": true, "USER_DEVICE": true, "USER_TTY": true,
	"USER_AVC": true, "LOGIN": true, "CRED_ACQ": true, "CRED_DISP": true,
	"CRED_REFR": true,

	"ANOM_ABEND": true, "ANOM_LINK": true, "ANOM_PROMISCUOUS": true,
	"ANOM_AMBIGUOUS_LINK": true, "ANOM_MAX_DAC": true, "ANOM_ACCESS_FS": true,
	"ANOM_ADD_ACCT": true, "ANOM_DEL_ACCT": true, "ANOM_MOD_ACCT": true,
	"ANOM_RBAC_INTEGRITY_FAIL": true,

	"SERVICE_START": true, "SERVICE_STOP": true,
	"SYSTEM_BOOT": true, "SYSTEM_SHUTDOWN": true, "SYSTEM_RUNLEVEL": true,

	"NETFILTER_CFG": true, "NETFILTER_PKT": true,

	"AVC": true, "AVC_PATH": true, "SELINUX_ERR": true, "MAC_POLICY_LOAD": true,
	"MAC_STATUS": true, "MAC_CONFIG_CHANGE": true, "MAC_UNLBL_ALLOW": true,

	"BPRM_FCAPS": true, "CAPSET": true, "MMAP": true, "KERNEL_OTHER": true,
	"INTEGRITY_RULE": true, "INTEGRITY_DATA": true, "INTEGRITY_METADATA": true,
	"INTEGRITY_STATUS": true, "INTEGRITY_HASH": true, "INTEGRITY_PCR": true,

	"KERNEL": true, "DAEMON_START": true, "DAEMON_END": true,
	"DAEMON_ABORT": true, "DAEMON_CONFIG": true, "DAEMON_RECONFIG": true,

	"ADD_USER": true, "DEL_USER": true, "ADD_GROUP": true, "DEL_GROUP": true,
	"GRP_AUTH": true, "CHGRP_ID": true, "CHUSER_ID": true,

	"TTY": true, "CHAUTHTOK": true, "ACCT_LOCK": true, "ACCT_UNLOCK": true,

	"NETLABEL_ALLOW": true, "NETLABEL_DENY": true,

	"FEATURE_CHANGE": true, "REPLACE": true, "TRUSTED_APP": true,

	"PROCTITLE_CHANGE": true, "OBJ_PID": true, "FANOTIFY": true,
	"SECCOMP": true, "TIME_INJOFFSET": true, "TIME_ADJNTPVAL": true,

	"VIRT_CONTROL": true, "VIRT_RESOURCE": true, "VIRT_MACHINE_ID": true,
	"VIRT_INTEGRITY_CHECK": true,

	"CRYPTO_KEY_USER": true, "CRYPTO_SESSION": true,
	"CRYPTO_LOGIN": true, "CRYPTO_LOGOUT": true, "CRYPTO_PARAM_CHANGE_USER": true,
	"CRYPTO_REPLAY_USER": true, "CRYPTO_FAILURE_USER": true,
	"CRYPTO_IKE_SA": true, "CRYPTO_IPSEC_SA": true,

	"IPC": true, "IPC_SET_PERM": true, "Q_SYNC": true,
}

// IsKnown reports whether tag is a recognized record type.
func IsKnown(tag string) bool {
	return knownTypes[tag]
}
