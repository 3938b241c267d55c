// Package storage manages the output directory.
//
// JSON exports are written through AtomicFS so an interrupted write never
// leaves a truncated document, and media archives are zip files created
// with CreateArchive:
//
//	mgr, err := storage.NewManager(cfg.Output.BaseDirectory)
//	zf, path, err := mgr.CreateArchive(name)
//	defer zf.Close()
package storage
