package user

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetUsers(ctx context.Context, page, limit int) ([]*entities.User, int64, error) {
	args := m.Called(ctx, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) UpdateUser(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CreateSubscription(ctx context.Context, subscription *entities.Subscription) error {
	args := m.Called(ctx, subscription)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteSubscription(ctx context.Context, userID, authorID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, authorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) GetSubscribedAuthors(ctx context.Context, userID uuid.UUID, page, limit int) ([]*entities.User, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) SubscribedAuthorIDs(ctx context.Context, userID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, userID, authorIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *MockUserRepository) AuthorRecipes(ctx context.Context, authorID uuid.UUID, limit int) ([]*entities.Recipe, int64, error) {
	args := m.Called(ctx, authorID, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Recipe), args.Get(1).(int64), args.Error(2)
}

// MockJWTService is a mock implementation of jwt.JWTService.
type MockJWTService struct {
	mock.Mock
}

func (m *MockJWTService) GenerateTokenUser(userId string, role string) string {
	args := m.Called(userId, role)
	return args.String(0)
}

func (m *MockJWTService) ValidateTokenUser(token string) (*jwtlib.Token, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jwtlib.Token), args.Error(1)
}

func (m *MockJWTService) GetUserIDByToken(token string) (string, string, error) {
	args := m.Called(token)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockJWTService) GenerateTokenResetPassword(data map[string]any, duration time.Duration) (string, error) {
	args := m.Called(data, duration)
	return args.String(0), args.Error(1)
}

func (m *MockJWTService) ValidateTokenResetPassword(token string) (jwtlib.MapClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(jwtlib.MapClaims), args.Error(1)
}

func testAuthor(username string) *entities.User {
	return &entities.User{
		ID:        uuid.New(),
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  "Author",
		Role:      domain.RoleUser,
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	var created *entities.User
	repo.On("CreateUser", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*entities.User)
		}).Return(nil)

	view, err := service.Register(context.Background(), domain.RegisterRequest{
		Email:     "chef@example.com",
		Username:  "chef",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "s3cretpass",
	})

	assert.NoError(t, err)
	assert.Equal(t, "chef@example.com", view.Email)
	assert.False(t, view.IsSubscribed)
	if assert.NotNil(t, created) {
		assert.NotEqual(t, "s3cretpass", created.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("s3cretpass")))
	}
}

func TestRegisterDuplicateEmailIsConflict(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	repo.On("CreateUser", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := service.Register(context.Background(), domain.RegisterRequest{
		Email:    "chef@example.com",
		Username: "chef",
		Password: "s3cretpass",
	})

	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("rightpass"), bcrypt.DefaultCost)
	user := testAuthor("chef")
	user.Password = string(hashed)

	repo.On("GetUserByEmail", mock.Anything, user.Email).Return(user, nil)

	_, err := service.Login(context.Background(), domain.LoginRequest{
		Email:    user.Email,
		Password: "wrongpass",
	})

	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
	jwtService.AssertNotCalled(t, "GenerateTokenUser", mock.Anything, mock.Anything)
}

func TestLoginUnknownEmail(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	repo.On("GetUserByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)

	_, err := service.Login(context.Background(), domain.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})

	assert.ErrorIs(t, err, domain.ErrCredentialsInvalid)
}

func TestSetPasswordWrongCurrent(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("rightpass"), bcrypt.DefaultCost)
	user := testAuthor("chef")
	user.Password = string(hashed)

	repo.On("GetUserByID", mock.Anything, user.ID.String()).Return(user, nil)

	err := service.SetPassword(context.Background(), domain.SetPasswordRequest{
		CurrentPassword: "wrongpass",
		NewPassword:     "newpass123",
	}, user.ID.String())

	assert.ErrorIs(t, err, domain.ErrPasswordWrong)
	repo.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything)
}

func TestSetPasswordReuseRejected(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	hashed, _ := bcrypt.GenerateFromPassword([]byte("rightpass"), bcrypt.DefaultCost)
	user := testAuthor("chef")
	user.Password = string(hashed)

	repo.On("GetUserByID", mock.Anything, user.ID.String()).Return(user, nil)

	err := service.SetPassword(context.Background(), domain.SetPasswordRequest{
		CurrentPassword: "rightpass",
		NewPassword:     "rightpass",
	}, user.ID.String())

	assert.ErrorIs(t, err, domain.ErrPasswordSame)
}

func TestSubscribeToSelf(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	id := uuid.New().String()

	_, err := service.Subscribe(context.Background(), id, id, domain.RecipesLimitUnbounded)

	assert.ErrorIs(t, err, domain.ErrSelfSubscription)
	repo.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestSubscribeTwiceIsConflict(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	author := testAuthor("chef")
	viewer := uuid.New()

	repo.On("GetUserByID", mock.Anything, author.ID.String()).Return(author, nil)
	repo.On("CreateSubscription", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := service.Subscribe(context.Background(), author.ID.String(), viewer.String(), domain.RecipesLimitUnbounded)

	assert.ErrorIs(t, err, domain.ErrAlreadySubscribed)
}

func TestSubscribeUnknownAuthor(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	id := uuid.New().String()
	repo.On("GetUserByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.Subscribe(context.Background(), id, uuid.New().String(), domain.RecipesLimitUnbounded)

	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSubscribeReturnsAuthorRecipes(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	author := testAuthor("chef")
	viewer := uuid.New()
	recipes := []*entities.Recipe{
		{ID: uuid.New(), AuthorID: author.ID, Name: "Pancakes", CookingTime: 20},
	}

	repo.On("GetUserByID", mock.Anything, author.ID.String()).Return(author, nil)
	repo.On("CreateSubscription", mock.Anything, mock.MatchedBy(func(s *entities.Subscription) bool {
		return s.UserID == viewer && s.AuthorID == author.ID
	})).Return(nil)
	repo.On("AuthorRecipes", mock.Anything, author.ID, domain.RecipesLimitUnbounded).Return(recipes, int64(5), nil)

	view, err := service.Subscribe(context.Background(), author.ID.String(), viewer.String(), domain.RecipesLimitUnbounded)

	assert.NoError(t, err)
	assert.True(t, view.IsSubscribed)
	assert.Equal(t, int64(5), view.RecipesCount)
	if assert.Len(t, view.Recipes, 1) {
		assert.Equal(t, "Pancakes", view.Recipes[0].Name)
	}
	repo.AssertExpectations(t)
}

func TestUnsubscribeWithoutSubscription(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	author := testAuthor("chef")
	viewer := uuid.New()

	repo.On("GetUserByID", mock.Anything, author.ID.String()).Return(author, nil)
	repo.On("DeleteSubscription", mock.Anything, viewer, author.ID).Return(int64(0), nil)

	err := service.Unsubscribe(context.Background(), author.ID.String(), viewer.String())

	assert.ErrorIs(t, err, domain.ErrNotSubscribed)
}

func TestGetSubscriptionsRecipesLimitZero(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	author := testAuthor("chef")
	viewer := uuid.New()

	repo.On("GetSubscribedAuthors", mock.Anything, viewer, 1, 10).
		Return([]*entities.User{author}, int64(1), nil)
	// A zero limit keeps the total count but nests no recipes.
	repo.On("AuthorRecipes", mock.Anything, author.ID, 0).Return([]*entities.Recipe{}, int64(3), nil)

	views, count, err := service.GetSubscriptions(context.Background(), viewer.String(), 1, 10, 0)

	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	if assert.Len(t, views, 1) {
		assert.Empty(t, views[0].Recipes)
		assert.Equal(t, int64(3), views[0].RecipesCount)
		assert.True(t, views[0].IsSubscribed)
	}
}

func TestGetUserMarksSubscription(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	author := testAuthor("chef")
	viewer := uuid.New()

	repo.On("GetUserByID", mock.Anything, author.ID.String()).Return(author, nil)
	repo.On("SubscribedAuthorIDs", mock.Anything, viewer, []uuid.UUID{author.ID}).
		Return(map[uuid.UUID]bool{author.ID: true}, nil)

	view, err := service.GetUser(context.Background(), author.ID.String(), viewer.String())

	assert.NoError(t, err)
	assert.True(t, view.IsSubscribed)
}

func TestGetUserAnonymousViewer(t *testing.T) {
	repo := new(MockUserRepository)
	jwtService := new(MockJWTService)
	service := NewUserService(repo, jwtService)

	author := testAuthor("chef")
	repo.On("GetUserByID", mock.Anything, author.ID.String()).Return(author, nil)

	view, err := service.GetUser(context.Background(), author.ID.String(), "")

	assert.NoError(t, err)
	assert.False(t, view.IsSubscribed)
	repo.AssertNotCalled(t, "SubscribedAuthorIDs", mock.Anything, mock.Anything, mock.Anything)
}
