// Package directory implements the directory service: a directory's
// contents are themselves just the bytes of a regular-looking file, which
// this package serializes as CSV rows, one row per entry.
//
// Freeing a file's inode does not by itself rewrite any directory that
// references it. A directory entry whose inum bit has
// since been cleared in the inode bitmap is a stale reference, silently
// skipped by List and Lookup and physically dropped by Compact.
package directory

import (
	"github.com/gocarina/gocsv"

	vsfserrors "github.com/dargueta/vsfs/errors"
	"github.com/dargueta/vsfs/image"
	"github.com/dargueta/vsfs/rw"
)

// Entry is one directory row: a child name and the inum it resolves to.
type Entry struct {
	Name string `csv:"name"`
	Inum uint32 `csv:"inum"`
}

// Directory operates on the directory contents stored in the file backed
// by inum.
type Directory struct {
	img    *image.Image
	engine *rw.Engine
	inum   uint32
}

// Open returns a Directory view over the file backed by inum. The caller
// is responsible for having verified inum is actually a directory.
func Open(img *image.Image, engine *rw.Engine, inum uint32) *Directory {
	return &Directory{img: img, engine: engine, inum: inum}
}

// readEntries loads every raw entry currently stored in the directory,
// including stale ones whose target inode has since been freed. The
// directory's contents are a 4-byte little-endian length prefix followed
// by that many bytes of CSV.
func (d *Directory) readEntries() ([]Entry, error) {
	raw, err := d.engine.ReadStruct(d.inum)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []Entry
	if err := gocsv.UnmarshalString(string(raw), &entries); err != nil {
		return nil, vsfserrors.ErrInvalidFileType.WrapError(err)
	}
	return entries, nil
}

func (d *Directory) writeEntries(entries []Entry) error {
	csvStr, err := gocsv.MarshalString(&entries)
	if err != nil {
		return err
	}
	return d.engine.WriteStruct(d.inum, []byte(csvStr))
}

// isLive reports whether inum's bitmap bit is still set, i.e. the entry
// referencing it is not stale.
func (d *Directory) isLive(inum uint32) bool {
	return d.img.IndexBitmap().Get(int(inum))
}

// List returns every live entry in the directory, in on-disk order.
func (d *Directory) List() ([]Entry, error) {
	all, err := d.readEntries()
	if err != nil {
		return nil, err
	}

	live := make([]Entry, 0, len(all))
	for _, e := range all {
		if d.isLive(e.Inum) {
			live = append(live, e)
		}
	}
	return live, nil
}

// Lookup returns the inum bound to name, or ok=false if no live entry by
// that name exists.
func (d *Directory) Lookup(name string) (inum uint32, ok bool, err error) {
	entries, err := d.List()
	if err != nil {
		return 0, false, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Inum, true, nil
		}
	}
	return 0, false, nil
}

// Exists reports whether a live entry named name exists in the directory.
func (d *Directory) Exists(name string) (bool, error) {
	_, ok, err := d.Lookup(name)
	return ok, err
}

// Add appends a new entry binding name to inum. It returns ErrFileExists
// if a live entry by that name is already present.
func (d *Directory) Add(name string, inum uint32) error {
	exists, err := d.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return vsfserrors.ErrFileExists.WithMessage(name)
	}

	all, err := d.readEntries()
	if err != nil {
		return err
	}
	all = append(all, Entry{Name: name, Inum: inum})
	return d.writeEntries(all)
}

// Remove deletes the live entry named name from the directory. Removal
// here only rewrites this directory's own entry list; it does not free
// the target inode, which is the caller's responsibility. It returns
// ErrPathNotFound if no live entry by that name exists.
func (d *Directory) Remove(name string) error {
	all, err := d.readEntries()
	if err != nil {
		return err
	}

	out := make([]Entry, 0, len(all))
	found := false
	for _, e := range all {
		if e.Name == name && d.isLive(e.Inum) {
			found = true
			continue
		}
		out = append(out, e)
	}
	if !found {
		return vsfserrors.ErrPathNotFound.WithMessage(name)
	}
	return d.writeEntries(out)
}

// Compact rewrites the directory's contents keeping only live entries,
// physically dropping any whose target inode bit has been cleared.
func (d *Directory) Compact() error {
	live, err := d.List()
	if err != nil {
		return err
	}
	return d.writeEntries(live)
}

// IsEmpty reports whether the directory holds no live entries.
func (d *Directory) IsEmpty() (bool, error) {
	entries, err := d.List()
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
