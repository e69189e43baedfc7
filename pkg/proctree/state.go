package proctree

import (
	"bytes"
	"encoding/gob"
	"os"
	"time"

	"github.com/hillu/laurel/pkg/laurelerr"
	bolt "go.etcd.io/bbolt"
)

var stateBucket = []byte("processes")

// SaveState persists every tracked entry to a bbolt database at path, gob
// encoding each Process as a snapshot keyed by its Key's string form. This
// is the [state] section's file, written on graceful shutdown (§5).
func (t *Tracker) SaveState(path string) error {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return laurelerr.New(laurelerr.StateLoadFailed, "open state file %s: %v", path, err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(stateBucket)
		if err != nil {
			return err
		}
		if err := b.ForEach(func(k, _ []byte) error { return b.Delete(k) }); err != nil {
			return err
		}
		for key, p := range t.byKey {
			snap := snapshot{
				Key:      p.Key,
				Parent:   p.Parent,
				Comm:     p.Comm,
				Exe:      p.Exe,
				Ppid:     p.Ppid,
				Labels:   p.LabelSlice(),
				Script:   p.Script,
				Alive:    p.Alive,
				ExitedAt: p.ExitedAt,
			}
			var buf bytes.Buffer
			if err := gob.NewEncoder(&buf).Encode(&snap); err != nil {
				return err
			}
			if err := b.Put([]byte(key.String()), buf.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadState restores tracked entries from path, skipping the file entirely
// if it is older than maxAge (the [state] max-age tunable) — a state file
// from a previous boot describes processes that almost certainly no longer
// exist.
func (t *Tracker) LoadState(path string, maxAge time.Duration) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return laurelerr.New(laurelerr.StateLoadFailed, "stat state file %s: %v", path, err)
	}
	if maxAge > 0 && time.Since(info.ModTime()) > maxAge {
		return nil
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second, ReadOnly: true})
	if err != nil {
		return laurelerr.New(laurelerr.StateLoadFailed, "open state file %s: %v", path, err)
	}
	defer db.Close()

	now := time.Now()
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(stateBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var snap snapshot
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&snap); err != nil {
				return err
			}
			p := &Process{
				Key:       snap.Key,
				Parent:    snap.Parent,
				Comm:      snap.Comm,
				Exe:       snap.Exe,
				Ppid:      snap.Ppid,
				Script:    snap.Script,
				Alive:     snap.Alive,
				ExitedAt:  snap.ExitedAt,
				lastUse:   now,
			}
			for _, l := range snap.Labels {
				p.AddLabel(l)
			}
			t.byKey[p.Key] = p
			t.byPid[p.Key.Pid] = p
			return nil
		})
	})
}
