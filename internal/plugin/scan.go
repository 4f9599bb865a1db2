package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/orcsym/internal/regerr"
)

// ScanDir walks the plugin directory. Libraries listed in reg are marked
// eligible with CheckFile and left for deferred loading; every other
// library is loaded immediately. reg may be nil, in which case every
// library is loaded and opts configure the scan. When reg is not nil its
// own settings are used and opts are ignored.
//
// Like LoadAll, ScanDir keeps going after a failure and returns the most
// severe one. A missing directory is not an error.
func ScanDir(dir string, reg *Registry, opts ...Option) error {
	const op = "plugin.ScanDir"
	var s settings
	if reg != nil {
		s = reg.settings
	} else {
		var err error
		if s, err = newSettings(op, opts); err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return regerr.Wrap(regerr.LoadFailure, op, dir, err)
	}

	var worst error
	rank := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == DescriptorName {
			continue
		}
		name := e.Name()
		if !s.pattern.matches(s.normalize(name)) {
			continue
		}
		if reg != nil && reg.CheckFile(name) {
			s.log.Debug("plugin library deferred", "library", name)
			continue
		}
		path := filepath.Join(dir, name)
		s.log.Debug("loading plugin library", "library", name, "path", path)
		lerr := s.loader.Load(path)
		if lerr == nil {
			continue
		}
		if benign(lerr) {
			s.log.Warn("plugin library not found", "path", path, "error", lerr)
			continue
		}
		s.log.Error("plugin library failed to load", "path", path, "error", lerr)
		if sev := severity(lerr); sev > rank {
			worst, rank = loadError(op, path, lerr), sev
		}
	}
	return worst
}
