package main

import (
	"context"
	"flag"
	"log"

	"skalgpt-be/internal/config"
	"skalgpt-be/internal/model"
	"skalgpt-be/internal/repository/unitofwork"
	"skalgpt-be/pkg/database"
)

func main() {
	purge := flag.Bool("purge", false, "hard delete sessions idle longer than PERSONA_RETENTION_DAYS")
	flag.Parse()

	// 1. Load Environment Variables
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Step 1: Setting up extensions...")
	for _, sql := range []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	} {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute setup SQL: %v", err)
		}
	}

	log.Println("Step 2: Running AutoMigrate...")
	if err := db.AutoMigrate(
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.DocumentChunk{},
	); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// Constraints and indexes AutoMigrate does not express
	log.Println("Step 3: Creating constraints and indexes...")
	postMigrationSQL := []string{
		`DO $$ BEGIN
		   IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'fk_chat_messages_session') THEN
		     ALTER TABLE chat_messages
		       ADD CONSTRAINT fk_chat_messages_session
		       FOREIGN KEY (chat_session_id) REFERENCES chat_sessions(id) ON DELETE CASCADE;
		   END IF;
		 END $$;`,
		`DO $$ BEGIN
		   IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_chat_messages_role') THEN
		     ALTER TABLE chat_messages
		       ADD CONSTRAINT chk_chat_messages_role CHECK (role IN ('user', 'assistant'));
		   END IF;
		 END $$;`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
		   ON document_chunks USING hnsw (embedding vector_cosine_ops);`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute post-migration SQL: %v", err)
		}
	}

	ctx := context.Background()
	uow := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx)

	if *purge {
		n, err := uow.ChatSessionRepository().PurgeOlderThan(ctx, cfg.Persona.RetentionDays)
		if err != nil {
			log.Fatalf("Error: Purge failed: %v", err)
		}
		log.Printf("Purged %d sessions older than %d days", n, cfg.Persona.RetentionDays)
	}

	sessions, err := uow.ChatSessionRepository().Count(ctx)
	if err != nil {
		log.Fatalf("Error: Count sessions failed: %v", err)
	}
	chunks, err := uow.DocumentChunkRepository().Count(ctx)
	if err != nil {
		log.Fatalf("Error: Count document chunks failed: %v", err)
	}
	log.Printf("Sessions: %d, document chunks: %d", sessions, chunks)
	if chunks == 0 {
		log.Println("Warn: document_chunks is empty, answers will have no school context until it is populated")
	}

	log.Println("Success: Database migration completed.")
}
