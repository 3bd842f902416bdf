package seed

import (
	"fmt"
	"log"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options configuration for the seeder
type Options struct {
	NumUsers        int
	NumGroups       int
	PostsPerUser    int
	CommentsPerPost int
	FollowsPerUser  int
	ShouldClean     bool
	SkipBcrypt      bool
	DryRun          bool
	MaxDays         int
	BatchSize       int
	// RandomSeed makes runs reproducible when non-zero.
	RandomSeed int64
}

// DefaultOptions is a small, browsable data set.
func DefaultOptions() Options {
	return Options{
		NumUsers:        20,
		NumGroups:       4,
		PostsPerUser:    8,
		CommentsPerPost: 2,
		FollowsPerUser:  3,
		MaxDays:         90,
		BatchSize:       100,
	}
}

// BuiltInGroups are created on every boot that asks for built-in seeding.
var BuiltInGroups = []models.Group{
	{Title: "General", Slug: "general", Description: "Anything that does not fit elsewhere."},
	{Title: "Books", Slug: "books", Description: "What we are reading and why."},
	{Title: "Travel", Slug: "travel", Description: "Trips, routes and places worth the detour."},
	{Title: "Technology", Slug: "technology", Description: "Gadgets, code and the people who make them."},
}

// Groups ensures BuiltInGroups exist. Existing slugs are left untouched.
func Groups(db *gorm.DB) error {
	for _, g := range BuiltInGroups {
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return fmt.Errorf("seed group %q: %w", g.Slug, err)
		}
		group := g
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoNothing: true,
		}).Create(&group).Error; err != nil {
			return fmt.Errorf("seed group %q: %w", g.Slug, err)
		}
	}
	return nil
}

// Summary counts what a Seed run created.
type Summary struct {
	Users    int
	Groups   int
	Posts    int
	Comments int
	Follows  int
}

// Seed populates the database with generated users, groups, posts, comments
// and follow edges.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	log.Printf("Starting database seeding with %d users...", opts.NumUsers)

	if opts.ShouldClean && !opts.DryRun {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(db, opts)
	summary := &Summary{}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	groups := make([]*models.Group, 0, opts.NumGroups)
	for i := 0; i < opts.NumGroups; i++ {
		g, err := f.CreateGroup()
		if err != nil {
			return nil, fmt.Errorf("failed to create group: %w", err)
		}
		groups = append(groups, g)
	}
	summary.Groups = len(groups)

	posts := make([]*models.Post, 0, len(users)*opts.PostsPerUser)
	for _, u := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			var group *models.Group
			if len(groups) > 0 {
				group = groups[f.rnd.Intn(len(groups))]
			}
			posts = append(posts, f.BuildPost(u, group))
		}
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	summary.Posts = len(posts)

	for _, p := range posts {
		for i := 0; i < opts.CommentsPerPost; i++ {
			if _, err := f.CreateComment(users[f.rnd.Intn(len(users))], p); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			summary.Comments++
		}
	}

	if len(users) > 1 {
		for _, u := range users {
			for _, idx := range f.rnd.Perm(len(users))[:min(opts.FollowsPerUser, len(users))] {
				author := users[idx]
				if author.ID == u.ID {
					continue
				}
				if err := f.CreateFollow(u, author); err != nil {
					return nil, fmt.Errorf("failed to create follow: %w", err)
				}
				summary.Follows++
			}
		}
	}

	log.Printf("Seeding complete: %d users, %d groups, %d posts, %d comments, %d follows",
		summary.Users, summary.Groups, summary.Posts, summary.Comments, summary.Follows)
	return summary, nil
}

// clearData removes every seeded row, children first.
func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.Group{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
