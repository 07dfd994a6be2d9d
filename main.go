package main

import (
	"log"
	"net/http"
)

// initCollection opens (or creates) the sqlite-backed snapshot store at
// dbPath and loads the collection, seeding a fresh one on first run —
// the same two-path init the teacher's InitDefaultCollection follows.
func initCollection(dbPath string) (*Collection, *SQLiteStore, error) {
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, err
	}

	col := NewCollection(SystemClock{})
	if err := store.LoadSnapshot(col); err != nil {
		store.Close()
		return nil, nil, err
	}

	return col, store, nil
}

func main() {
	log.Println("Initializing microdote server...")

	col, store, err := initCollection("./data/microdote.db")
	if err != nil {
		log.Fatalf("failed to initialize collection: %v", err)
	}
	defer store.Close()

	log.Printf("collection loaded with %d decks, %d notes, %d cards\n",
		len(col.Decks), len(col.Notes), len(col.Cards))

	rng := NewRng(uint64(col.Header.CreationEpoch))
	sched := NewScheduler(col, rng)

	backups := NewBackupManager("./data/microdote.db", "./backups", store)
	handler := NewAPIHandler(sched, store, backups)

	router := NewRouter(handler)

	port := ":8080"
	log.Printf("server starting on http://localhost%s\n", port)
	log.Printf("API endpoints available at http://localhost%s/api\n", port)

	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
