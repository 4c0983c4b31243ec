package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/binfalse/CombineArchive-fb/internal/catalog"
	"github.com/binfalse/CombineArchive-fb/internal/omex"
)

// scanWorkers caps concurrent archive loads during a catalog scan.
const scanWorkers = 4

// openCatalog opens the configured catalog store. The caller must close it.
func (a *OmexApp) openCatalog() (*catalog.Store, error) {
	store, err := catalog.Open(a.cfg.Storage.CatalogPath, a.clock, a.idgen)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return store, nil
}

// CatalogMigrate creates or upgrades the catalog database.
func (a *OmexApp) CatalogMigrate() error {
	return catalog.Migrate(a.cfg.Storage.CatalogPath)
}

// ScanCatalog walks dir for *.omex archives, loads each one, and records it
// in the catalog. Archives that fail to load are logged and skipped.
// Returns the number of archives cataloged.
func (a *OmexApp) ScanCatalog(ctx context.Context, dir string) (int, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".omex") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking %s: %w", dir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)

	var mu sync.Mutex
	var records []catalog.Record

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := a.scanArchive(path)
			if err != nil {
				a.logger.Warn("skipping unreadable archive", "path", path, "error", err)
				return nil
			}
			mu.Lock()
			records = append(records, *rec)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	store, err := a.openCatalog()
	if err != nil {
		return 0, err
	}
	defer store.Close()

	for _, rec := range records {
		if _, err := store.Upsert(rec); err != nil {
			return 0, err
		}
	}

	a.logger.Info("catalog scan finished", "dir", dir, "found", len(paths), "cataloged", len(records))
	return len(records), nil
}

// scanArchive loads one archive and builds its catalog record.
func (a *OmexApp) scanArchive(path string) (*catalog.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	arch, err := omex.Load(path, a.packer, a.codec, a.logger)
	if err != nil {
		return nil, err
	}
	defer arch.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	return &catalog.Record{
		Path:     abs,
		MainFile: arch.MainFile(),
		Entries:  int64(len(arch.Entries())),
		Size:     info.Size(),
	}, nil
}

// CatalogList returns every cataloged archive ordered by path.
func (a *OmexApp) CatalogList() ([]*catalog.Record, error) {
	store, err := a.openCatalog()
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.List()
}

// CatalogRemove drops the archive at path from the catalog. It reports
// whether a record existed.
func (a *OmexApp) CatalogRemove(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}

	store, err := a.openCatalog()
	if err != nil {
		return false, err
	}
	defer store.Close()

	return store.Delete(abs)
}
