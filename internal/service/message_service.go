package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MessageService covers posting, deleting and liking warbles, and the home timeline.
type MessageService struct {
	messageRepo repository.MessageRepository
	likeRepo    repository.LikeRepository
	followRepo  repository.FollowRepository
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	likeRepo repository.LikeRepository,
	followRepo repository.FollowRepository,
) *MessageService {
	return &MessageService{messageRepo: messageRepo, likeRepo: likeRepo, followRepo: followRepo}
}

// Create posts text as userID. Text is trimmed and must be 1 to 140 characters.
func (s *MessageService) Create(ctx context.Context, userID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Message text is required.")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return nil, models.NewValidationError(fmt.Sprintf("Messages are limited to %d characters.", models.MaxMessageLength))
	}

	msg := &models.Message{Text: text, UserID: userID}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Get loads a message with its author.
func (s *MessageService) Get(ctx context.Context, id uint) (*models.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

// Delete removes a message; only its author may do so.
func (s *MessageService) Delete(ctx context.Context, actorID, id uint) error {
	msg, err := s.messageRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if msg.UserID != actorID {
		return models.ErrForbidden
	}
	return s.messageRepo.Delete(ctx, id)
}

// ToggleLike likes or unlikes a message and reports whether it is now liked.
// Users cannot like their own messages.
func (s *MessageService) ToggleLike(ctx context.Context, userID, messageID uint) (liked bool, err error) {
	ctx, end := observability.StartSpan(ctx, "MessageService.ToggleLike",
		attribute.Int64("message.id", int64(messageID)))
	defer func() { end(err) }()

	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.UserID == userID {
		return false, models.ErrForbidden
	}
	return s.likeRepo.Toggle(ctx, userID, messageID)
}

// LikedIDs returns the set of message ids userID has liked.
func (s *MessageService) LikedIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	ids, err := s.likeRepo.LikedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Timeline returns the newest messages by userID and the users they follow.
// A non-positive limit means repository.DefaultTimelineLimit.
func (s *MessageService) Timeline(ctx context.Context, userID uint, limit int) (msgs []models.Message, err error) {
	ctx, end := observability.StartSpan(ctx, "MessageService.Timeline")
	defer func() { end(err) }()

	ids, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.messageRepo.Timeline(ctx, append(ids, userID), limit)
}
