package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/totvocab/internal/ai"
	"github.com/example/totvocab/internal/config"
	"github.com/example/totvocab/internal/excel"
	"github.com/example/totvocab/internal/server"
	"github.com/example/totvocab/internal/store"
)

func main() {
	importFile := flag.String("import", "", "import word records from an .xlsx or .csv file and exit")
	exportFile := flag.String("export", "", "export word records to an .xlsx file and exit")
	flag.Parse()

	cfg := config.Load()

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	if closer, ok := st.(io.Closer); ok {
		defer closer.Close()
	}

	if *importFile != "" {
		runImport(st, *importFile)
		return
	}
	if *exportFile != "" {
		runExport(st, *exportFile)
		return
	}

	completer := ai.New(cfg.DeepseekAPIKey, cfg.DeepseekBaseURL)
	if !completer.Configured() {
		log.Println("[WARN] DEEPSEEK_API_KEY or DEEPSEEK_BASE_URL is not set; /chat will report errors")
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(st, completer).Handler(),
	}

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
		close(done)
	}()

	log.Printf("[INFO] Vocabulary server listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
	log.Println("Server stopped successfully")
}

// openStore picks the backend from the environment: the remote key-value
// store when configured, a relational database as fallback, and an
// in-process store for credential-less development runs.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.KVURL != "" {
		log.Println("[INFO] Using remote key-value store")
		return store.NewRedisStore(cfg.KVURL, cfg.KVToken)
	}
	if cfg.DatabaseURL != "" {
		log.Println("[INFO] Using relational store")
		return store.NewSQLStore(cfg.DatabaseURL)
	}
	log.Println("[WARN] KV_URL and DATABASE_URL are not set; records are kept in memory only")
	return store.NewMemoryStore(), nil
}

func runImport(st store.Store, filePath string) {
	result, err := excel.ImportWords(context.Background(), st, excel.DefaultImportConfig(filePath))
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
	log.Printf("[INFO] Import finished: %d processed, %d created, %d skipped",
		result.TotalProcessed, result.Created, result.Skipped)
	for _, importError := range result.Errors {
		log.Printf("[WARN] %s", importError)
	}
}

func runExport(st store.Store, filePath string) {
	count, err := excel.ExportWords(context.Background(), st, filePath)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	log.Printf("[INFO] Exported %d word records to %s", count, filePath)
}
