// Package storage writes invoice artifacts to disk.
//
// Every file goes to a temporary name in the output folder first and is
// then renamed over the target, so a reader never sees a partial artifact
// and a rerun replaces earlier files of the same name.
//
//	store, err := storage.NewManager(filepath.Join(base, "Invoices"))
//	path, err := store.SaveBytes("HoaDon_0101234567_123.xml", xml)
package storage
