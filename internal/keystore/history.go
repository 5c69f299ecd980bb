package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	kerrors "github.com/PolarWolf314/crypthru/internal/errors"
)

// KeyRecord describes one key file of an identity.
type KeyRecord struct {
	Identity string
	Role     Role
	Path     string
	// Created is the file modification time.
	Created time.Time
	// Expires is zero for the canonical key.
	Expires time.Time
}

// Current reports whether the record is the canonical key.
func (r KeyRecord) Current() bool {
	return r.Expires.IsZero()
}

// ValidAt reports whether a superseded record was in force at date.
func (r KeyRecord) ValidAt(date time.Time) bool {
	return !r.Current() && !date.After(r.Expires) && !date.Before(r.Created)
}

// History lists the canonical and superseded keys of an identity, most
// recent first. The canonical key always comes first.
func (k *Keystore) History(role Role, id string) ([]KeyRecord, error) {
	dir, err := k.Dir(role)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", kerrors.ErrIO, dir, err)
	}

	expired := regexp.MustCompile("^" + regexp.QuoteMeta(id+expirationMarker) + `([0-9]+)` + regexp.QuoteMeta(KeyExt) + "$")

	var records []KeyRecord
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		var expires time.Time
		if m := expired.FindStringSubmatch(name); m != nil {
			secs, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			expires = time.Unix(secs, 0)
		} else if name != id+KeyExt {
			continue
		}

		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("%w: stat %s: %v", kerrors.ErrIO, name, err)
		}
		records = append(records, KeyRecord{
			Identity: id,
			Role:     role,
			Path:     filepath.Join(dir, name),
			Created:  info.ModTime(),
			Expires:  expires,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Current() != b.Current() {
			return a.Current()
		}
		return a.Expires.After(b.Expires)
	})
	return records, nil
}

// LookupAtDate returns the key of id that was valid at date. The canonical
// key is used when it was written before date; otherwise the first
// superseded record whose lifetime covers date is returned. The boolean is
// false when no key matches.
func (k *Keystore) LookupAtDate(role Role, id string, date time.Time) (KeyRecord, bool, error) {
	records, err := k.History(role, id)
	if err != nil {
		return KeyRecord{}, false, err
	}

	for _, r := range records {
		if r.Current() && r.Created.Before(date) {
			return r, true, nil
		}
	}
	for _, r := range records {
		if r.ValidAt(date) {
			return r, true, nil
		}
	}
	return KeyRecord{}, false, nil
}
