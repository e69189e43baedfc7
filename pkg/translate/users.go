package translate

import (
	"os/user"
	"strconv"
	"sync"
)

// UserDB resolves uid/gid to account names, caching lookups the way the
// enricher needs to for every SYSCALL/PATH record's uid/gid/euid/suid/fsuid
// family of fields. Grounded on the account-lookup pattern gravitational-
// teleport uses (os/user, wrapped with a cache) — there is no third-party
// passwd/group-database library anywhere in the corpus, so this is the one
// ambient concern that stays on the standard library.
type UserDB struct {
	mu     sync.Mutex
	users  map[string]string
	groups map[string]string
}

// NewUserDB creates an empty, lazily-populated cache.
func NewUserDB() *UserDB {
	return &UserDB{users: make(map[string]string), groups: make(map[string]string)}
}

// Username resolves a uid (as the decimal string found in the audit
// record) to an account name. ok is false if the uid doesn't exist locally
// — audit records routinely carry uids for accounts that have since been
// deleted, or "-1"/4294967295 for "unset".
func (db *UserDB) Username(uid string) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if name, ok := db.users[uid]; ok {
		return name, name != ""
	}
	u, err := user.LookupId(uid)
	if err != nil {
		db.users[uid] = ""
		return "", false
	}
	db.users[uid] = u.Username
	return u.Username, true
}

// Groupname resolves a gid the same way Username resolves a uid.
func (db *UserDB) Groupname(gid string) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if name, ok := db.groups[gid]; ok {
		return name, name != ""
	}
	g, err := user.LookupGroupId(gid)
	if err != nil {
		db.groups[gid] = ""
		return "", false
	}
	db.groups[gid] = g.Name
	return g.Name, true
}

// IsUnsetUID reports whether a uid string denotes auditd's "no such user"
// sentinel, (uint32)-1, printed as 4294967295.
func IsUnsetUID(uid string) bool {
	n, err := strconv.ParseUint(uid, 10, 32)
	return err == nil && n == 4294967295
}
