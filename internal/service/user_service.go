package service

import (
	"context"
	"strings"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// UserService covers profiles, search and the follow graph.
type UserService struct {
	userRepo    repository.UserRepository
	followRepo  repository.FollowRepository
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
}

// Profile is everything the profile page shows. Each count comes from its own query.
type Profile struct {
	User           *models.User
	Messages       []models.Message
	MessageCount   int64
	FollowingCount int64
	FollowerCount  int64
	LikeCount      int64
}

// UpdateProfileInput carries the edit form. Password is the current password.
type UpdateProfileInput struct {
	UserID         uint
	Username       string
	Email          string
	ImageURL       string
	HeaderImageURL string
	Bio            string
	Location       string
	Password       string
}

func NewUserService(
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	messageRepo repository.MessageRepository,
	likeRepo repository.LikeRepository,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		followRepo:  followRepo,
		messageRepo: messageRepo,
		likeRepo:    likeRepo,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns all users, or those whose username contains search.
func (s *UserService) ListUsers(ctx context.Context, search string) ([]models.User, error) {
	return s.userRepo.List(ctx, search)
}

// IsFollowing reports whether userID follows otherID.
func (s *UserService) IsFollowing(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.Exists(ctx, userID, otherID)
}

// IsFollowedBy reports whether otherID follows userID.
func (s *UserService) IsFollowedBy(ctx context.Context, userID, otherID uint) (bool, error) {
	return s.followRepo.Exists(ctx, otherID, userID)
}

// Follow adds the edge followerID -> followedID. Repeating it is harmless.
func (s *UserService) Follow(ctx context.Context, followerID, followedID uint) error {
	if followerID == followedID {
		return models.ErrSelfFollow
	}
	if _, err := s.userRepo.GetByID(ctx, followedID); err != nil {
		return err
	}
	return s.followRepo.Create(ctx, followerID, followedID)
}

// Unfollow removes the edge if present.
func (s *UserService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	if _, err := s.userRepo.GetByID(ctx, followedID); err != nil {
		return err
	}
	return s.followRepo.Delete(ctx, followerID, followedID)
}

// Following lists who id follows.
func (s *UserService) Following(ctx context.Context, id uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.followRepo.Following(ctx, id)
}

// Followers lists who follows id.
func (s *UserService) Followers(ctx context.Context, id uint) ([]models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.followRepo.Followers(ctx, id)
}

// Likes lists the messages id has liked, with their authors.
func (s *UserService) Likes(ctx context.Context, id uint) ([]models.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.likeRepo.LikedMessages(ctx, id)
}

// GetProfile loads a user with their recent messages and the four counters.
func (s *UserService) GetProfile(ctx context.Context, id uint) (p *Profile, err error) {
	ctx, end := observability.StartSpan(ctx, "UserService.GetProfile")
	defer func() { end(err) }()

	if p, err = s.ProfileStats(ctx, id); err != nil {
		return nil, err
	}
	if p.Messages, err = s.messageRepo.ListByUser(ctx, id, repository.DefaultTimelineLimit); err != nil {
		return nil, err
	}
	return p, nil
}

// ProfileStats loads a user and the four counters, without messages.
func (s *UserService) ProfileStats(ctx context.Context, id uint) (*Profile, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: user}

	if p.MessageCount, err = s.messageRepo.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	if p.FollowingCount, err = s.followRepo.CountFollowing(ctx, id); err != nil {
		return nil, err
	}
	if p.FollowerCount, err = s.followRepo.CountFollowers(ctx, id); err != nil {
		return nil, err
	}
	if p.LikeCount, err = s.likeRepo.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile re-checks the current password, then applies the edit.
// Blank username or email keep the old value; blank image URLs reset to the defaults.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	current, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	// GetByID may come from cache without the hash.
	creds, err := s.userRepo.GetByUsername(ctx, current.Username)
	if err != nil {
		return nil, err
	}
	if creds == nil || bcrypt.CompareHashAndPassword([]byte(creds.Password), []byte(in.Password)) != nil {
		return nil, models.ErrWrongPassword
	}

	updated := *creds
	if name := strings.TrimSpace(in.Username); name != "" && name != creds.Username {
		if err := s.ensureFree(ctx, s.userRepo.GetByUsername, name, models.ErrUsernameTaken); err != nil {
			return nil, err
		}
		updated.Username = name
	}
	if email := strings.TrimSpace(in.Email); email != "" && email != creds.Email {
		if err := s.ensureFree(ctx, s.userRepo.GetByEmail, email, models.ErrEmailTaken); err != nil {
			return nil, err
		}
		updated.Email = email
	}
	updated.ImageURL = strings.TrimSpace(in.ImageURL)
	updated.HeaderImageURL = strings.TrimSpace(in.HeaderImageURL)
	updated.Bio = strings.TrimSpace(in.Bio)
	updated.Location = strings.TrimSpace(in.Location)

	if err := s.userRepo.UpdateProfile(ctx, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *UserService) ensureFree(
	ctx context.Context,
	lookup func(context.Context, string) (*models.User, error),
	value string,
	taken error,
) error {
	existing, err := lookup(ctx, value)
	if err != nil {
		return err
	}
	if existing != nil {
		return taken
	}
	return nil
}

// DeleteUser removes the account and everything it owns in one transaction.
func (s *UserService) DeleteUser(ctx context.Context, id uint) (err error) {
	ctx, end := observability.StartSpan(ctx, "UserService.DeleteUser")
	defer func() { end(err) }()

	return s.userRepo.Delete(ctx, id)
}
