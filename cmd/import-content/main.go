// Package main imports a content tree into the content_documents table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cory-johannsen/melee/internal/config"
	"github.com/cory-johannsen/melee/internal/game/content"
	"github.com/cory-johannsen/melee/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty = defaults and MELEE_ environment")
	sourceDir := flag.String("source", "", "content tree to import; empty = engine.content_dir")
	replace := flag.Bool("replace", false, "replace every stored document instead of upserting")
	dryRun := flag.Bool("dry-run", false, "validate the tree without writing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("loading config: %v", err)
	}
	dir := *sourceDir
	if dir == "" {
		dir = cfg.Engine.ContentDir
	}

	start := time.Now()
	docs, err := content.ReadDir(dir)
	if err != nil {
		fail("reading %s: %v", dir, err)
	}
	// Validate the tree on its own before touching the database.
	c, err := content.LoadDocuments(docs)
	if err != nil {
		fail("invalid content in %s:\n%v", dir, err)
	}
	fmt.Printf("validated %d documents: %d attacks, %d actors, %d encounters\n",
		len(docs), c.Catalog.Len(), len(c.Actors), len(c.Encounters))
	if *dryRun {
		return
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		fail("connecting to database: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewContentRepository(pool.DB())

	if *replace {
		err = repo.Replace(ctx, docs)
	} else {
		for _, d := range docs {
			if err = repo.Put(ctx, d); err != nil {
				break
			}
		}
	}
	if err != nil {
		fail("storing documents: %v", err)
	}
	// Upserts can combine with older rows into an invalid set.
	if _, err := repo.Load(ctx); err != nil {
		fail("stored content no longer loads:\n%v", err)
	}
	fmt.Printf("import complete in %s\n", time.Since(start).Round(time.Millisecond))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
