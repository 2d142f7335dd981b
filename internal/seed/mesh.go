package seed

import (
	"fmt"

	"lattice/internal/models"
)

// meshBuilder generates a random follow graph. Each user follows up to five
// others; edges into private accounts are sometimes left pending.
type meshBuilder struct {
	factory *Factory
}

func newMeshBuilder(f *Factory) *meshBuilder {
	return &meshBuilder{factory: f}
}

func (b *meshBuilder) build(numUsers, postsPerUser int) (*Result, error) {
	faker := b.factory.faker
	result := &Result{}

	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		user := b.factory.BuildUser(i + 1)
		if err := b.factory.CreateUser(user, DefaultPassword); err != nil {
			return nil, fmt.Errorf("create user %s: %w", user.Username, err)
		}
		users = append(users, user)
		result.Users = append(result.Users, *user)
	}

	// canSee[viewer][author] mirrors the privacy rule so comments only land
	// on posts their author could read.
	canSee := make(map[uint]map[uint]bool, numUsers)
	for _, u := range users {
		canSee[u.ID] = map[uint]bool{u.ID: true}
	}

	maxFollows := min(5, numUsers-1)
	for _, follower := range users {
		picked := map[uint]bool{follower.ID: true}
		for n := faker.Number(1, maxFollows); n > 0; n-- {
			followee := users[faker.Number(0, numUsers-1)]
			if picked[followee.ID] {
				continue
			}
			picked[followee.ID] = true

			status := models.FollowStatusAccepted
			if followee.IsPrivate && faker.Bool() {
				status = models.FollowStatusPending
			}
			if err := b.factory.CreateFollow(follower, followee, status); err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			result.Follows++
			if status == models.FollowStatusAccepted {
				canSee[follower.ID][followee.ID] = true
			}
		}
	}

	posts := make([]*models.Post, 0, numUsers*postsPerUser)
	for _, author := range users {
		for i := 0; i < postsPerUser; i++ {
			posts = append(posts, b.factory.BuildPost(author))
		}
	}
	if err := b.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	result.Posts = len(posts)

	byID := make(map[uint]*models.User, numUsers)
	for _, u := range users {
		byID[u.ID] = u
	}

	var comments []*models.Comment
	for _, post := range posts {
		if faker.Number(1, 10) > 3 {
			continue
		}
		commenter := users[faker.Number(0, numUsers-1)]
		if !byID[post.AuthorID].IsPrivate || canSee[commenter.ID][post.AuthorID] {
			comments = append(comments, b.factory.BuildComment(commenter, post))
		}
	}
	if err := b.factory.CreateCommentsBatch(comments); err != nil {
		return nil, fmt.Errorf("create comments: %w", err)
	}
	result.Comments = len(comments)

	return result, nil
}
