package sink

import (
	"os"
	"os/user"

	"github.com/hillu/laurel/pkg/config"
	"github.com/hillu/laurel/pkg/laurelerr"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileWriter wraps lumberjack's size/generation-based rotation for the
// [auditlog]/[filterlog] sections, and makes the active file group-readable
// (mode 0640) when read-users are configured.
type FileWriter struct {
	lj *lumberjack.Logger
}

// NewFileWriter builds a FileWriter from an AuditLogConfig.
func NewFileWriter(cfg config.AuditLogConfig) (*FileWriter, error) {
	lj := &lumberjack.Logger{
		Filename: cfg.File,
		MaxSize:  maxSizeMB(cfg.Size),
		MaxBackups: cfg.Generations,
	}
	if err := applyReadACL(cfg.File, cfg.ReadUsers); err != nil {
		return nil, err
	}
	return &FileWriter{lj: lj}, nil
}

func maxSizeMB(bytes int64) int {
	if bytes <= 0 {
		return 100
	}
	mb := bytes / (1024 * 1024)
	if mb < 1 {
		mb = 1
	}
	return int(mb)
}

func (f *FileWriter) Write(p []byte) (int, error) { return f.lj.Write(p) }
func (f *FileWriter) Close() error                { return f.lj.Close() }

// applyReadACL creates the log file if needed, checks that every read-users
// entry names an account in the standard account database, and sets the
// file's mode to 0640. It adds no per-user ACL entries and does not change
// the file's group, so read access goes to whichever group owns the file.
func applyReadACL(path string, readUsers []string) error {
	if len(readUsers) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return laurelerr.New(laurelerr.ConfigInvalid, "auditlog: create %s: %v", path, err)
	}
	f.Close()

	for _, name := range readUsers {
		if _, err := user.Lookup(name); err != nil {
			return laurelerr.New(laurelerr.ConfigInvalid, "auditlog: read-users entry %q: %v", name, err)
		}
	}
	return os.Chmod(path, 0o640)
}
