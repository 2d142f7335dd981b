// Command main replaces the database contents with demo data.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"lattice/internal/config"
	"lattice/internal/database"
	"lattice/internal/middleware"
	"lattice/internal/seed"
)

func main() {
	fixturePath := flag.String("fixture", "", "YAML fixture to load; empty generates a social mesh")
	demo := flag.Bool("demo", false, "Load the bundled demo fixture")
	numUsers := flag.Int("users", 50, "Number of users to generate")
	postsPerUser := flag.Int("posts", 4, "Posts per generated user")
	randSeed := flag.Int64("rand-seed", 0, "Seed for reproducible meshes (0 = random)")
	fast := flag.Bool("fast", true, "Hash passwords at minimum bcrypt cost")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{FastHash: *fast, RandSeed: *randSeed})

	switch {
	case *demo || *fixturePath != "":
		var fx *seed.Fixture
		if *demo {
			fx, err = seed.DemoFixture()
		} else {
			fx, err = seed.LoadFixture(*fixturePath)
		}
		if err != nil {
			log.Fatalf("Failed to load fixture: %v", err)
		}
		if _, err := s.ApplyFixture(ctx, fx); err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	default:
		if _, err := s.SeedSocialMesh(ctx, *numUsers, *postsPerUser); err != nil {
			log.Fatalf("Mesh seeding failed: %v", err)
		}
	}

	log.Printf("All done. Accounts without an explicit password use %q", seed.DefaultPassword)
}
