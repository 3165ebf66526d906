// Viewer dumps the persisted message log as a table, straight from Badger,
// without going through the server. Read-only: it can run while the server
// holds the lock.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	Limit          int    `env:"VIEWER_LIMIT,default=100"`
}

// row mirrors the persisted record layout.
type row struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Body     string    `json:"message"`
	FileURL  string    `json:"fileUrl"`
	FileName string    `json:"file"`
	SentAt   time.Time `json:"timestamp"`
}

func main() {
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// BypassLockGuard allows opening while the server holds the lock.
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Timestamp", "Username", "Message", "Attachment"})
	table.SetRowLine(false)

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte("msg:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if count >= config.Limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var r row
				if err := json.Unmarshal(value, &r); err != nil {
					return err
				}
				table.Append([]string{
					r.SentAt.Format(time.RFC3339),
					r.Username,
					truncate(r.Body, 60),
					r.FileName,
				})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to read messages: %v", err)
	}

	color.Cyan.Printf("Message log (%d entries, oldest first)\n", count)
	table.Render()
	if count == config.Limit {
		color.Yellow.Println(fmt.Sprintf("Output truncated at VIEWER_LIMIT=%d", config.Limit))
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
