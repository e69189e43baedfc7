package translate

import (
	"strconv"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/record"
)

// uidFields and gidFields list the SYSCALL field names that hold a uid or
// gid respectively, per the audit event format.
var uidFields = map[string]struct{}{
	"uid": {}, "euid": {}, "suid": {}, "fsuid": {},
	"auid": {}, "ouid": {},
}

var gidFields = map[string]struct{}{
	"gid": {}, "egid": {}, "sgid": {}, "fsgid": {}, "ogid": {},
}

// Translator attaches the Symbolic form to numeric fields across a record,
// per §4 translation design: syscall numbers, uids/gids, and SOCKADDR
// values. It is safe for concurrent use; UserDB has its own lock and the
// syscall/arch tables are immutable.
type Translator struct {
	cfg config.TranslateConfig
	db  *UserDB
}

// New builds a Translator from the [translate] configuration section.
func New(cfg config.TranslateConfig) *Translator {
	return &Translator{cfg: cfg, db: NewUserDB()}
}

// Record translates every recognized field of rec in place. arch is the
// already-decoded arch mnemonic for this event's SYSCALL record (empty if
// none or unrecognized).
func (t *Translator) Record(rec *record.Record, arch string) {
	if !t.cfg.Universal && !t.cfg.UserDB {
		return
	}

	if t.cfg.Universal && rec.Type == "SYSCALL" {
		t.translateSyscall(rec, arch)
		t.translateSockaddr(rec)
	}

	if t.cfg.Universal || t.cfg.UserDB {
		for i := range rec.Fields {
			key := rec.Fields[i].Key
			if _, ok := uidFields[key]; ok && t.cfg.UserDB {
				t.translateUID(&rec.Fields[i].Value)
			}
			if _, ok := gidFields[key]; ok && t.cfg.UserDB {
				t.translateGID(&rec.Fields[i].Value)
			}
		}
	}

	if rec.Type == "SOCKADDR" {
		t.translateSockaddr(rec)
	}

	if t.cfg.DropRaw {
		for i := range rec.Fields {
			if rec.Fields[i].Value.Symbolic != "" {
				rec.Fields[i].Value.Raw = nil
				rec.Fields[i].Value.Bytes = nil
			}
		}
	}
}

func (t *Translator) translateSyscall(rec *record.Record, arch string) {
	v, ok := rec.Get("syscall")
	if !ok || arch == "" {
		return
	}
	nr, err := strconv.ParseInt(v.String(), 10, 64)
	if err != nil {
		return
	}
	if name, ok := SyscallName(arch, nr); ok {
		for i := range rec.Fields {
			if rec.Fields[i].Key == "syscall" {
				rec.Fields[i].Value.Symbolic = name
			}
		}
	}
}

func (t *Translator) translateUID(v *record.Value) {
	if IsUnsetUID(v.String()) {
		v.Symbolic = "unset"
		return
	}
	if name, ok := t.db.Username(v.String()); ok {
		v.Symbolic = name
	}
}

func (t *Translator) translateGID(v *record.Value) {
	if name, ok := t.db.Groupname(v.String()); ok {
		v.Symbolic = name
	}
}

func (t *Translator) translateSockaddr(rec *record.Record) {
	for i := range rec.Fields {
		if rec.Fields[i].Key != "saddr" {
			continue
		}
		v := &rec.Fields[i].Value
		if sym, ok := DecodeSockaddr(v.Bytes); ok {
			v.Symbolic = sym
		}
	}
}
