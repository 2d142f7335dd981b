package seed

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"lattice/internal/models"
	"lattice/internal/validation"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yml
var demoFixture []byte

// Fixture is a hand-written social graph. Follows, posts and comments refer to
// users by username.
type Fixture struct {
	Users    []FixtureUser    `yaml:"users"`
	Follows  []FixtureFollow  `yaml:"follows"`
	Posts    []FixturePost    `yaml:"posts"`
	Comments []FixtureComment `yaml:"comments"`
}

type FixtureUser struct {
	Username  string `yaml:"username"`
	Name      string `yaml:"name"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	Bio       string `yaml:"bio"`
	Country   string `yaml:"country"`
	IsPrivate bool   `yaml:"is_private"`
}

// FixtureFollow defaults to an accepted edge.
type FixtureFollow struct {
	Follower string `yaml:"follower"`
	Followee string `yaml:"followee"`
	Status   string `yaml:"status"`
}

// FixturePost is dated HoursAgo before the seeding run.
type FixturePost struct {
	Key      string `yaml:"key"`
	Author   string `yaml:"author"`
	Content  string `yaml:"content"`
	HoursAgo int    `yaml:"hours_ago"`
}

// FixtureComment attaches to the post with the matching key.
type FixtureComment struct {
	Post    string `yaml:"post"`
	Author  string `yaml:"author"`
	Comment string `yaml:"comment"`
}

// ParseFixture decodes and validates a YAML fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// DemoFixture returns the fixture bundled with the binary.
func DemoFixture() (*Fixture, error) {
	return ParseFixture(demoFixture)
}

// Validate applies the same account and content rules as the API and checks
// every reference.
func (fx *Fixture) Validate() error {
	if len(fx.Users) == 0 {
		return fmt.Errorf("fixture has no users")
	}

	usernames := make(map[string]bool, len(fx.Users))
	emails := make(map[string]bool, len(fx.Users))
	for i, u := range fx.Users {
		if err := validation.ValidateUsername(u.Username); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		email := strings.ToLower(u.Email)
		if err := validation.ValidateEmail(email); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if u.Password != "" {
			if err := validation.ValidatePassword(u.Password); err != nil {
				return fmt.Errorf("users[%d]: %w", i, err)
			}
		}
		if err := validation.ValidateCountry(u.Country); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if err := validation.ValidateBio(u.Bio); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if usernames[u.Username] {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		if emails[email] {
			return fmt.Errorf("users[%d]: duplicate email %q", i, email)
		}
		usernames[u.Username] = true
		emails[email] = true
	}

	edges := make(map[[2]string]bool, len(fx.Follows))
	for i, f := range fx.Follows {
		if !usernames[f.Follower] || !usernames[f.Followee] {
			return fmt.Errorf("follows[%d]: unknown user", i)
		}
		if f.Follower == f.Followee {
			return fmt.Errorf("follows[%d]: %s cannot follow themselves", i, f.Follower)
		}
		if _, err := parseFollowStatus(f.Status); err != nil {
			return fmt.Errorf("follows[%d]: %w", i, err)
		}
		edge := [2]string{f.Follower, f.Followee}
		if edges[edge] {
			return fmt.Errorf("follows[%d]: duplicate edge %s -> %s", i, f.Follower, f.Followee)
		}
		edges[edge] = true
	}

	keys := make(map[string]bool, len(fx.Posts))
	for i, p := range fx.Posts {
		if !usernames[p.Author] {
			return fmt.Errorf("posts[%d]: unknown author %q", i, p.Author)
		}
		if err := validation.ValidatePostContent(p.Content); err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
		if p.HoursAgo < 0 {
			return fmt.Errorf("posts[%d]: hours_ago must not be negative", i)
		}
		if p.Key != "" {
			if keys[p.Key] {
				return fmt.Errorf("posts[%d]: duplicate key %q", i, p.Key)
			}
			keys[p.Key] = true
		}
	}

	for i, c := range fx.Comments {
		if !keys[c.Post] {
			return fmt.Errorf("comments[%d]: unknown post %q", i, c.Post)
		}
		if !usernames[c.Author] {
			return fmt.Errorf("comments[%d]: unknown author %q", i, c.Author)
		}
		if err := validation.ValidateComment(c.Comment); err != nil {
			return fmt.Errorf("comments[%d]: %w", i, err)
		}
	}
	return nil
}

func parseFollowStatus(raw string) (models.FollowStatus, error) {
	switch models.FollowStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case "", models.FollowStatusAccepted:
		return models.FollowStatusAccepted, nil
	case models.FollowStatusPending:
		return models.FollowStatusPending, nil
	default:
		return "", fmt.Errorf("unknown follow status %q", raw)
	}
}

type fixtureWriter struct {
	factory *Factory
	users   map[string]*models.User
}

func newFixtureWriter(f *Factory) *fixtureWriter {
	return &fixtureWriter{factory: f, users: make(map[string]*models.User)}
}

func (w *fixtureWriter) write(fx *Fixture) (*Result, error) {
	result := &Result{}

	for _, fu := range fx.Users {
		user := &models.User{
			Username:  fu.Username,
			Name:      fu.Name,
			Email:     strings.ToLower(fu.Email),
			Bio:       fu.Bio,
			Country:   fu.Country,
			IsPrivate: fu.IsPrivate,
		}
		if err := w.factory.CreateUser(user, fu.Password); err != nil {
			return nil, fmt.Errorf("create user %s: %w", fu.Username, err)
		}
		w.users[fu.Username] = user
		result.Users = append(result.Users, *user)
	}

	for _, ff := range fx.Follows {
		status, _ := parseFollowStatus(ff.Status)
		if err := w.factory.CreateFollow(w.users[ff.Follower], w.users[ff.Followee], status); err != nil {
			return nil, fmt.Errorf("create follow %s -> %s: %w", ff.Follower, ff.Followee, err)
		}
		result.Follows++
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	posts := make([]*models.Post, 0, len(fx.Posts))
	byKey := make(map[string]*models.Post)
	for _, fp := range fx.Posts {
		post := &models.Post{
			AuthorID:       w.users[fp.Author].ID,
			AuthorUsername: fp.Author,
			Content:        strings.TrimSpace(fp.Content),
			CreatedAt:      now.Add(-time.Duration(fp.HoursAgo) * time.Hour),
		}
		posts = append(posts, post)
		if fp.Key != "" {
			byKey[fp.Key] = post
		}
	}
	if err := w.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	result.Posts = len(posts)

	comments := make([]*models.Comment, 0, len(fx.Comments))
	for _, fc := range fx.Comments {
		comments = append(comments, w.factory.BuildComment(w.users[fc.Author], byKey[fc.Post], func(c *models.Comment) {
			c.Comment = strings.TrimSpace(fc.Comment)
		}))
	}
	if err := w.factory.CreateCommentsBatch(comments); err != nil {
		return nil, fmt.Errorf("create comments: %w", err)
	}
	result.Comments = len(comments)

	return result, nil
}
