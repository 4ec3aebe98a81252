package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"teachablecam/internal/models"
	"teachablecam/internal/repository/sqlite"
	"teachablecam/internal/services/storage"
)

// migrate indexes snapshot files written while no database was configured.
func main() {
	snapshotsDir := flag.String("snapshots", "data/snapshots", "Directory containing snapshots")
	dbPath := flag.String("db", "data/teachablecam.db", "Database path")
	flag.Parse()

	fmt.Printf("Indexing snapshots from %s into database %s\n", *snapshotsDir, *dbPath)

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	repo := sqlite.NewSnapshotRepository(db)

	files, err := os.ReadDir(*snapshotsDir)
	if err != nil {
		log.Fatalf("Failed to read snapshots directory: %v", err)
	}

	perClass := make(map[int]int)
	inserted, skipped := 0, 0
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".jpg" {
			continue
		}

		timestamp, class, label, err := storage.ParseFilename(file.Name())
		if err != nil {
			log.Printf("Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}

		info, err := file.Info()
		if err != nil {
			log.Printf("Failed to get info for %s: %v", file.Name(), err)
			skipped++
			continue
		}

		if _, err := repo.Insert(&models.Snapshot{
			Filename:  file.Name(),
			Class:     class,
			Label:     label,
			Timestamp: timestamp,
			FilePath:  filepath.Join(*snapshotsDir, file.Name()),
			FileSize:  info.Size(),
		}); err != nil {
			log.Printf("Failed to insert %s: %v", file.Name(), err)
			skipped++
			continue
		}
		inserted++
		perClass[class]++
	}

	fmt.Printf("Indexed %d snapshots\n", inserted)
	if skipped > 0 {
		fmt.Printf("Skipped %d files (invalid format or errors)\n", skipped)
	}
	for class, count := range perClass {
		fmt.Printf("   class %d: %d snapshots\n", class, count)
	}
}
