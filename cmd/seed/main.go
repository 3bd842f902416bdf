// Command seed fills the database with generated demo data.
package main

import (
	"flag"
	"log"

	"inkwell/internal/bootstrap"
	"inkwell/internal/config"
	"inkwell/internal/middleware"
	"inkwell/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numGroups := flag.Int("groups", defaults.NumGroups, "Number of extra groups to create")
	postsPerUser := flag.Int("posts", defaults.PostsPerUser, "Posts per user")
	commentsPerPost := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	followsPerUser := flag.Int("follows", defaults.FollowsPerUser, "Authors each user follows")
	shouldClean := flag.Bool("clean", false, "Delete existing data before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	fast := flag.Bool("fast", false, "Store plain-text passwords (development only)")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.InitLogger(cfg)

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedBuiltIns: !*dryRun})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.NumGroups = *numGroups
	opts.PostsPerUser = *postsPerUser
	opts.CommentsPerPost = *commentsPerPost
	opts.FollowsPerUser = *followsPerUser
	opts.ShouldClean = *shouldClean
	opts.DryRun = *dryRun
	opts.SkipBcrypt = *fast
	opts.RandomSeed = *randomSeed

	if _, err := seed.Seed(db, opts); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	if *shouldClean && !*dryRun {
		if err := seed.Groups(db); err != nil {
			log.Fatalf("Built-in group seeding failed: %v", err)
		}
	}

	log.Printf("All test users have the password: %s", seed.DefaultPassword)
}
