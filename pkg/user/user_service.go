package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram-backend/domain"
	"foodgram-backend/entities"
	"foodgram-backend/internal/utils/storage"
	"foodgram-backend/pkg/jwt"
)

type (
	UserService interface {
		Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error)
		Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error)
		Me(ctx context.Context, userID string) (domain.UserProfile, error)
		GetProfile(ctx context.Context, id string, viewerID string) (domain.UserProfile, error)
		UpdateAvatar(ctx context.Context, req domain.UpdateAvatarRequest, userID string) (string, error)

		Subscribe(ctx context.Context, userID, targetID string) (domain.SubscriptionResponse, error)
		Unsubscribe(ctx context.Context, userID, targetID string) error
		GetSubscriptions(ctx context.Context, userID string, page, limit int) ([]domain.SubscriptionResponse, int64, error)
	}

	userService struct {
		userRepository UserRepository
		jwtService     jwt.JWTService
		s3             storage.AwsS3
	}
)

func NewUserService(userRepository UserRepository, jwtService jwt.JWTService, s3 storage.AwsS3) UserService {
	return &userService{
		userRepository: userRepository,
		jwtService:     jwtService,
		s3:             s3,
	}
}

func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (domain.RegisterResponse, error) {
	if _, err := s.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return domain.RegisterResponse{}, domain.ErrEmailAlreadyRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RegisterResponse{}, err
	}

	if _, err := s.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return domain.RegisterResponse{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.RegisterResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.RegisterResponse{}, err
	}

	user := &entities.User{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
	}

	if err := s.userRepository.CreateUser(ctx, user); err != nil {
		// the unique indexes close the race between the checks and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.RegisterResponse{}, s.classifyDuplicateUser(ctx, req)
		}
		return domain.RegisterResponse{}, err
	}

	return domain.RegisterResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}, nil
}

// classifyDuplicateUser names the unique constraint that rejected an insert
// when a concurrent registration won the race.
func (s *userService) classifyDuplicateUser(ctx context.Context, req domain.RegisterRequest) error {
	if _, err := s.userRepository.GetUserByUsername(ctx, req.Username); err == nil {
		return domain.ErrUsernameTaken
	}
	return domain.ErrEmailAlreadyRegistered
}

func (s *userService) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := s.userRepository.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoginResponse{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return domain.LoginResponse{}, domain.ErrInvalidCredentials
	}

	token := s.jwtService.GenerateTokenUser(user.ID.String(), user.Role)
	return domain.LoginResponse{Token: token, Role: user.Role}, nil
}

func (s *userService) Me(ctx context.Context, userID string) (domain.UserProfile, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, domain.ErrUserNotFound
		}
		return domain.UserProfile{}, err
	}
	return toProfile(user, false), nil
}

func (s *userService) GetProfile(ctx context.Context, id string, viewerID string) (domain.UserProfile, error) {
	user, err := s.userRepository.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, domain.ErrUserNotFound
		}
		return domain.UserProfile{}, err
	}

	isSubscribed := false
	if viewerID != "" && viewerID != id {
		isSubscribed, err = s.userRepository.IsFollowing(ctx, viewerID, id)
		if err != nil {
			return domain.UserProfile{}, err
		}
	}
	return toProfile(user, isSubscribed), nil
}

func (s *userService) UpdateAvatar(ctx context.Context, req domain.UpdateAvatarRequest, userID string) (string, error) {
	user, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrUserNotFound
		}
		return "", err
	}

	objectKey, err := s.s3.UploadFile(
		fmt.Sprintf("avatar-%s", user.ID.String()),
		req.Avatar,
		"avatars",
		storage.AllowImage...,
	)
	if err != nil {
		return "", err
	}

	user.AvatarURL = s.s3.GetPublicLinkKey(objectKey)
	if err := s.userRepository.UpdateUser(ctx, user); err != nil {
		return "", err
	}
	return user.AvatarURL, nil
}

func (s *userService) Subscribe(ctx context.Context, userID, targetID string) (domain.SubscriptionResponse, error) {
	if _, err := uuid.Parse(targetID); err != nil {
		return domain.SubscriptionResponse{}, domain.ErrParseUUID
	}
	if userID == targetID {
		return domain.SubscriptionResponse{}, domain.ErrSelfFollow
	}

	target, err := s.userRepository.GetUserByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SubscriptionResponse{}, domain.ErrUserNotFound
		}
		return domain.SubscriptionResponse{}, err
	}

	exists, err := s.userRepository.IsFollowing(ctx, userID, targetID)
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}
	if exists {
		return domain.SubscriptionResponse{}, domain.ErrAlreadyFollowing
	}

	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.SubscriptionResponse{}, domain.ErrParseUUID
	}

	follow := &entities.Follow{
		ID:          uuid.New(),
		UserID:      userUUID,
		FollowingID: target.ID,
	}
	if err := s.userRepository.CreateFollow(ctx, follow); err != nil {
		// the unique index closes the race between the check and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.SubscriptionResponse{}, domain.ErrAlreadyFollowing
		}
		return domain.SubscriptionResponse{}, err
	}

	return s.buildSubscription(ctx, target)
}

func (s *userService) Unsubscribe(ctx context.Context, userID, targetID string) error {
	if _, err := uuid.Parse(targetID); err != nil {
		return domain.ErrParseUUID
	}

	rows, err := s.userRepository.DeleteFollow(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFollowing
	}
	return nil
}

func (s *userService) GetSubscriptions(ctx context.Context, userID string, page, limit int) ([]domain.SubscriptionResponse, int64, error) {
	followed, count, err := s.userRepository.GetFollowing(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	subscriptions := make([]domain.SubscriptionResponse, 0, len(followed))
	for _, target := range followed {
		sub, err := s.buildSubscription(ctx, target)
		if err != nil {
			return nil, 0, err
		}
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, count, nil
}

func (s *userService) buildSubscription(ctx context.Context, target *entities.User) (domain.SubscriptionResponse, error) {
	recipes, recipesCount, err := s.userRepository.GetRecipesByAuthor(ctx, target.ID.String())
	if err != nil {
		return domain.SubscriptionResponse{}, err
	}

	summaries := make([]domain.RecipeSummary, 0, len(recipes))
	for _, r := range recipes {
		summaries = append(summaries, domain.RecipeSummary{
			ID:          r.ID,
			Name:        r.Name,
			ImageURL:    r.ImageURL,
			CookingTime: r.CookingTime,
		})
	}

	return domain.SubscriptionResponse{
		UserProfile:  toProfile(target, true),
		Recipes:      summaries,
		RecipesCount: recipesCount,
	}, nil
}

func toProfile(user *entities.User, isSubscribed bool) domain.UserProfile {
	return domain.UserProfile{
		UserPublic: domain.UserPublic{
			ID:        user.ID,
			Username:  user.Username,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			AvatarURL: user.AvatarURL,
		},
		IsSubscribed: isSubscribed,
	}
}
