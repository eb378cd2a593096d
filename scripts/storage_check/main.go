// Command storage_check audits the archive for drift between the documents
// table and the on-disk content directory. It reports rows whose blob is
// missing and blobs no row references.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/SidA7MD/archiv-api/pkg/config"
	"github.com/SidA7MD/archiv-api/pkg/database"
)

func main() {
	var (
		storageDir string
		fix        bool
	)
	flag.StringVar(&storageDir, "storage-dir", "", "Content directory (defaults to UPLOADS_STORAGE_DIR)")
	flag.BoolVar(&fix, "fix-orphans", false, "Remove blobs that no document row references")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if storageDir == "" {
		storageDir = cfg.Uploads.StorageDir
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close() //nolint:errcheck

	var paths []string
	if err := db.Select(&paths, "SELECT file_path FROM documents"); err != nil {
		log.Fatalf("failed to list documents: %v", err)
	}

	referenced := make(map[string]bool, len(paths))
	missing := 0
	for _, relPath := range paths {
		referenced[filepath.Clean(relPath)] = true
		if _, err := os.Stat(filepath.Join(storageDir, relPath)); err != nil {
			missing++
			fmt.Printf("missing blob: %s\n", relPath)
		}
	}

	orphans := 0
	err = filepath.Walk(storageDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(storageDir, path)
		if err != nil {
			return err
		}
		if !strings.HasSuffix(rel, ".pdf") || referenced[filepath.Clean(rel)] {
			return nil
		}
		orphans++
		fmt.Printf("orphan blob: %s\n", rel)
		if fix {
			if err := os.Remove(path); err != nil {
				fmt.Printf("failed to remove %s: %v\n", rel, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("failed to walk storage dir: %v", err)
	}

	fmt.Printf("checked %d rows: %d missing blobs, %d orphan blobs\n", len(paths), missing, orphans)
	if missing > 0 {
		os.Exit(1)
	}
}
