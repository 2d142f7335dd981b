package seed

import (
	"fmt"
	"strings"
	"time"

	"lattice/internal/models"
	"lattice/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db     *gorm.DB
	opts   Options
	faker  *gofakeit.Faker
	hashes map[string]string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
// A zero Options.RandSeed draws a random seed.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	return &Factory{
		db:     db,
		opts:   opts,
		faker:  gofakeit.New(opts.RandSeed),
		hashes: make(map[string]string),
	}
}

func (f *Factory) hash(password string) (string, error) {
	if h, ok := f.hashes[password]; ok {
		return h, nil
	}
	cost := bcrypt.DefaultCost
	if f.opts.FastHash {
		cost = bcrypt.MinCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	f.hashes[password] = string(h)
	return string(h), nil
}

// BuildUser returns an unsaved user with generated profile fields. The
// username carries seq so generated accounts never collide.
func (f *Factory) BuildUser(seq int, overrides ...func(*models.User)) *models.User {
	base := strings.ToLower(f.faker.FirstName() + f.faker.LastName())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, base)
	username := fmt.Sprintf("%s%d", base, seq)
	if len(username) > validation.UsernameMaxLen {
		username = username[len(username)-validation.UsernameMaxLen:]
	}
	for len(username) < validation.UsernameMinLen {
		username = "user" + username
	}

	country := f.faker.Country()
	if validation.ValidateCountry(country) != nil {
		country = ""
	}

	user := &models.User{
		Username:          username,
		Name:              f.faker.Name(),
		Email:             username + "@example.com",
		Bio:               f.faker.Sentence(8),
		Country:           country,
		DisplayPictureURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		IsPrivate:         f.faker.Number(1, 5) == 1,
		AccountStatus:     models.AccountStatusActive,
	}
	if validation.ValidateBio(user.Bio) != nil {
		user.Bio = ""
	}

	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser hashes password onto user and persists it.
func (f *Factory) CreateUser(user *models.User, password string) error {
	if password == "" {
		password = DefaultPassword
	}
	h, err := f.hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = h
	if user.Name == "" {
		user.Name = user.Username
	}
	if user.AccountStatus == "" {
		user.AccountStatus = models.AccountStatusActive
	}
	return f.db.Create(user).Error
}

// BuildPost returns an unsaved post by author dated within the last MaxDays.
func (f *Factory) BuildPost(author *models.User, overrides ...func(*models.Post)) *models.Post {
	maxMinutes := f.opts.MaxDays * 24 * 60
	if maxMinutes <= 0 {
		maxMinutes = 30 * 24 * 60
	}
	age := time.Duration(f.faker.Number(0, maxMinutes)) * time.Minute

	post := &models.Post{
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		Content:        f.faker.Paragraph(1, f.faker.Number(1, 4), 10, " "),
		CreatedAt:      time.Now().UTC().Add(-age).Truncate(time.Microsecond),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists posts in chunks of Options.BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.CreateInBatches(posts, f.batchSize()).Error
}

// CreateFollow persists an edge from follower to followee.
func (f *Factory) CreateFollow(follower, followee *models.User, status models.FollowStatus) error {
	if follower.ID == followee.ID {
		return fmt.Errorf("user %s cannot follow themselves", follower.Username)
	}
	return f.db.Create(&models.Follow{
		FollowerID: follower.ID,
		FolloweeID: followee.ID,
		Status:     status,
	}).Error
}

// BuildComment returns an unsaved comment on post, dated after the post.
func (f *Factory) BuildComment(author *models.User, post *models.Post, overrides ...func(*models.Comment)) *models.Comment {
	delay := time.Duration(f.faker.Number(1, 180)) * time.Minute
	comment := &models.Comment{
		PostID:    post.ID,
		AuthorID:  author.ID,
		Comment:   f.faker.Sentence(f.faker.Number(3, 12)),
		CreatedAt: post.CreatedAt.Add(delay),
	}
	if now := time.Now().UTC().Truncate(time.Microsecond); comment.CreatedAt.After(now) {
		comment.CreatedAt = now
	}
	for _, override := range overrides {
		override(comment)
	}
	return comment
}

// CreateCommentsBatch persists comments in chunks of Options.BatchSize.
func (f *Factory) CreateCommentsBatch(comments []*models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	return f.db.CreateInBatches(comments, f.batchSize()).Error
}

func (f *Factory) batchSize() int {
	if f.opts.BatchSize <= 0 {
		return 100
	}
	return f.opts.BatchSize
}
