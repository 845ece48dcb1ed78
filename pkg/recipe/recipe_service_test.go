package recipe

import (
	"context"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
)

// MockRecipeRepository is a mock implementation of RecipeRepository.
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) CreateRecipe(ctx context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient, tags []*entities.Tag) error {
	args := m.Called(ctx, recipe, lines, tags)
	return args.Error(0)
}

func (m *MockRecipeRepository) UpdateRecipe(ctx context.Context, recipe *entities.Recipe, lines []*entities.RecipeIngredient, tags []*entities.Tag) error {
	args := m.Called(ctx, recipe, lines, tags)
	return args.Error(0)
}

func (m *MockRecipeRepository) DeleteRecipe(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecipeRepository) GetRecipeByID(ctx context.Context, id string) (*entities.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) GetRecipes(ctx context.Context, filter domain.RecipeFilter, viewerID uuid.UUID, page, limit int) ([]*entities.Recipe, int64, error) {
	args := m.Called(ctx, filter, viewerID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.Recipe), args.Get(1).(int64), args.Error(2)
}

func (m *MockRecipeRepository) UpdateRecipeImage(ctx context.Context, id uuid.UUID, imageURL string) error {
	args := m.Called(ctx, id, imageURL)
	return args.Error(0)
}

func (m *MockRecipeRepository) GetTagsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Tag, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Tag), args.Error(1)
}

func (m *MockRecipeRepository) GetIngredientsByIDs(ctx context.Context, ids []uuid.UUID) ([]*entities.Ingredient, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ingredient), args.Error(1)
}

func (m *MockRecipeRepository) CreateFavorite(ctx context.Context, favorite *entities.Favorite) error {
	args := m.Called(ctx, favorite)
	return args.Error(0)
}

func (m *MockRecipeRepository) DeleteFavorite(ctx context.Context, userID, recipeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, recipeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecipeRepository) CreateCartEntry(ctx context.Context, entry *entities.CartEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockRecipeRepository) DeleteCartEntry(ctx context.Context, userID, recipeID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, recipeID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRecipeRepository) FavoriteRecipeIDs(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, userID, recipeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *MockRecipeRepository) CartRecipeIDs(ctx context.Context, userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, userID, recipeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *MockRecipeRepository) SubscribedAuthorIDs(ctx context.Context, userID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	args := m.Called(ctx, userID, authorIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]bool), args.Error(1)
}

func (m *MockRecipeRepository) CartIngredientLines(ctx context.Context, userID uuid.UUID) ([]*entities.RecipeIngredient, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RecipeIngredient), args.Error(1)
}

// MockAwsS3 is a mock implementation of storage.AwsS3.
type MockAwsS3 struct {
	mock.Mock
}

func (m *MockAwsS3) UploadFile(fileName string, file *multipart.FileHeader, folder string, allowedTypes ...string) (string, error) {
	args := m.Called(fileName, file, folder, allowedTypes)
	return args.String(0), args.Error(1)
}

func (m *MockAwsS3) UploadBytes(fileName string, data []byte, contentType string, folder string, allowedTypes ...string) (string, error) {
	args := m.Called(fileName, data, contentType, folder, allowedTypes)
	return args.String(0), args.Error(1)
}

func (m *MockAwsS3) UpdateFile(objectKey string, file *multipart.FileHeader, allowedTypes ...string) (string, error) {
	args := m.Called(objectKey, file, allowedTypes)
	return args.String(0), args.Error(1)
}

func (m *MockAwsS3) DeleteFile(objectKey string) error {
	args := m.Called(objectKey)
	return args.Error(0)
}

func (m *MockAwsS3) GetPublicLinkKey(objectKey string) string {
	args := m.Called(objectKey)
	return args.String(0)
}

func (m *MockAwsS3) GetObjectKeyFromLink(link string) string {
	args := m.Called(link)
	return args.String(0)
}

func ingredientLine(name, unit string, amount int) *entities.RecipeIngredient {
	return &entities.RecipeIngredient{
		ID:     uuid.New(),
		Amount: amount,
		Ingredient: &entities.Ingredient{
			ID:              uuid.New(),
			Name:            name,
			MeasurementUnit: unit,
		},
	}
}

func TestAggregateLinesMergesByNameAndUnit(t *testing.T) {
	lines := []*entities.RecipeIngredient{
		ingredientLine("flour", "gram", 200),
		ingredientLine("flour", "gram", 50),
		ingredientLine("salt", "gram", 5),
	}

	got := AggregateLines(lines)

	assert.Equal(t, []string{"flour (gram) - 250", "salt (gram) - 5"}, got)
}

func TestAggregateLinesKeepsFirstEncounterOrder(t *testing.T) {
	lines := []*entities.RecipeIngredient{
		ingredientLine("salt", "gram", 5),
		ingredientLine("milk", "ml", 100),
		ingredientLine("salt", "gram", 3),
		ingredientLine("flour", "gram", 200),
		ingredientLine("milk", "ml", 50),
	}

	got := AggregateLines(lines)

	assert.Equal(t, []string{
		"salt (gram) - 8",
		"milk (ml) - 150",
		"flour (gram) - 200",
	}, got)
}

func TestAggregateLinesSameNameDifferentUnitStaysSeparate(t *testing.T) {
	lines := []*entities.RecipeIngredient{
		ingredientLine("milk", "ml", 100),
		ingredientLine("milk", "gram", 30),
	}

	got := AggregateLines(lines)

	assert.Equal(t, []string{"milk (ml) - 100", "milk (gram) - 30"}, got)
}

func TestBuildShoppingListEmptyCart(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	viewer := uuid.New()
	repo.On("CartIngredientLines", mock.Anything, viewer).Return([]*entities.RecipeIngredient{}, nil)

	lines, err := service.BuildShoppingList(context.Background(), viewer.String())

	assert.NoError(t, err)
	assert.Empty(t, lines)
	repo.AssertExpectations(t)
}

func testRecipe(authorID uuid.UUID) *entities.Recipe {
	return &entities.Recipe{
		ID:          uuid.New(),
		AuthorID:    authorID,
		Name:        "Pancakes",
		ImageURL:    "https://bucket.s3.region.amazonaws.com/recipes/recipe-1.png",
		CookingTime: 20,
	}
}

func TestAddFavoriteReturnsSummary(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	viewer := uuid.New()
	recipe := testRecipe(uuid.New())

	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)
	repo.On("CreateFavorite", mock.Anything, mock.MatchedBy(func(f *entities.Favorite) bool {
		return f.UserID == viewer && f.RecipeID == recipe.ID
	})).Return(nil)

	summary, err := service.AddFavorite(context.Background(), recipe.ID.String(), viewer.String())

	assert.NoError(t, err)
	assert.Equal(t, recipe.ID.String(), summary.ID)
	assert.Equal(t, recipe.Name, summary.Name)
	assert.Equal(t, recipe.CookingTime, summary.CookingTime)
	repo.AssertExpectations(t)
}

func TestAddFavoriteTwiceIsConflict(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	viewer := uuid.New()
	recipe := testRecipe(uuid.New())

	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)
	repo.On("CreateFavorite", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := service.AddFavorite(context.Background(), recipe.ID.String(), viewer.String())

	assert.ErrorIs(t, err, domain.ErrAlreadyFavorited)
}

func TestRemoveFavoriteTwiceIsNotFound(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	viewer := uuid.New()
	recipe := testRecipe(uuid.New())

	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)
	repo.On("DeleteFavorite", mock.Anything, viewer, recipe.ID).Return(int64(0), nil)

	err := service.RemoveFavorite(context.Background(), recipe.ID.String(), viewer.String())

	assert.ErrorIs(t, err, domain.ErrNotFavorited)
}

func TestAddToCartMissingRecipeIsNotFound(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	id := uuid.New().String()
	repo.On("GetRecipeByID", mock.Anything, id).Return(nil, gorm.ErrRecordNotFound)

	_, err := service.AddToCart(context.Background(), id, uuid.New().String())

	assert.ErrorIs(t, err, domain.ErrRecipeNotFound)
	repo.AssertNotCalled(t, "CreateCartEntry", mock.Anything, mock.Anything)
}

func TestAddToCartTwiceIsConflict(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	recipe := testRecipe(uuid.New())
	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)
	repo.On("CreateCartEntry", mock.Anything, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := service.AddToCart(context.Background(), recipe.ID.String(), uuid.New().String())

	assert.ErrorIs(t, err, domain.ErrAlreadyInCart)
}

func TestCreateRecipeUnknownIngredientFailsBeforePersist(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	tag := &entities.Tag{ID: uuid.New(), Name: "breakfast", Color: "#AABBCC", Slug: "breakfast"}
	repo.On("GetTagsByIDs", mock.Anything, mock.Anything).Return([]*entities.Tag{tag}, nil)
	// The referenced ingredient does not exist in the catalog.
	repo.On("GetIngredientsByIDs", mock.Anything, mock.Anything).Return([]*entities.Ingredient{}, nil)

	req := domain.CreateRecipeRequest{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		Image:       "data:image/png;base64,aGVsbG8=",
		CookingTime: 20,
		Ingredients: []domain.RecipeIngredientInput{{ID: uuid.New().String(), Amount: 3}},
		Tags:        []string{tag.ID.String()},
	}

	_, err := service.CreateRecipe(context.Background(), req, uuid.New().String())

	assert.ErrorIs(t, err, domain.ErrIngredientNotFound)
	repo.AssertNotCalled(t, "CreateRecipe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	s3.AssertNotCalled(t, "UploadBytes", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRecipeKeepsSubmittedIngredientOrder(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	author := uuid.New()
	flour := &entities.Ingredient{ID: uuid.New(), Name: "flour", MeasurementUnit: "gram"}
	milk := &entities.Ingredient{ID: uuid.New(), Name: "milk", MeasurementUnit: "ml"}
	tag := &entities.Tag{ID: uuid.New(), Name: "breakfast", Color: "#AABBCC", Slug: "breakfast"}

	repo.On("GetTagsByIDs", mock.Anything, mock.Anything).Return([]*entities.Tag{tag}, nil)
	repo.On("GetIngredientsByIDs", mock.Anything, mock.Anything).Return([]*entities.Ingredient{flour, milk}, nil)
	s3.On("UploadBytes", mock.Anything, mock.Anything, "image/png", "recipes", mock.Anything).Return("recipes/recipe-x.png", nil)
	s3.On("GetPublicLinkKey", "recipes/recipe-x.png").Return("https://bucket/recipes/recipe-x.png")

	var captured []*entities.RecipeIngredient
	repo.On("CreateRecipe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(2).([]*entities.RecipeIngredient)
		}).Return(nil)
	repo.On("GetRecipeByID", mock.Anything, mock.Anything).Return(testRecipe(author), nil)
	repo.On("FavoriteRecipeIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)
	repo.On("CartRecipeIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)
	repo.On("SubscribedAuthorIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)

	req := domain.CreateRecipeRequest{
		Name:        "Pancakes",
		Text:        "Mix and fry.",
		Image:       "data:image/png;base64,aGVsbG8=",
		CookingTime: 20,
		Ingredients: []domain.RecipeIngredientInput{
			{ID: flour.ID.String(), Amount: 200},
			{ID: milk.ID.String(), Amount: 100},
		},
		Tags: []string{tag.ID.String()},
	}

	_, err := service.CreateRecipe(context.Background(), req, author.String())

	assert.NoError(t, err)
	if assert.Len(t, captured, 2) {
		assert.Equal(t, flour.ID, captured[0].IngredientID)
		assert.Equal(t, 0, captured[0].Position)
		assert.Equal(t, milk.ID, captured[1].IngredientID)
		assert.Equal(t, 1, captured[1].Position)
	}
}

func TestUpdateRecipeReplacesIngredientLines(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	author := uuid.New()
	recipe := testRecipe(author)
	recipe.Ingredients = []entities.RecipeIngredient{{}, {}, {}} // three lines before the update

	salt := &entities.Ingredient{ID: uuid.New(), Name: "salt", MeasurementUnit: "gram"}
	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)
	repo.On("GetIngredientsByIDs", mock.Anything, mock.Anything).Return([]*entities.Ingredient{salt}, nil)

	var replaced []*entities.RecipeIngredient
	repo.On("UpdateRecipe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			replaced = args.Get(2).([]*entities.RecipeIngredient)
		}).Return(nil)
	repo.On("FavoriteRecipeIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)
	repo.On("CartRecipeIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)
	repo.On("SubscribedAuthorIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uuid.UUID]bool{}, nil)

	lines := []domain.RecipeIngredientInput{{ID: salt.ID.String(), Amount: 5}}
	req := domain.UpdateRecipeRequest{Ingredients: &lines}

	_, err := service.UpdateRecipe(context.Background(), recipe.ID.String(), req, author.String())

	assert.NoError(t, err)
	if assert.Len(t, replaced, 1) {
		assert.Equal(t, salt.ID, replaced[0].IngredientID)
		assert.Equal(t, 5, replaced[0].Amount)
	}
}

func TestUpdateRecipeByNonOwnerIsForbidden(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	recipe := testRecipe(uuid.New())
	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)

	_, err := service.UpdateRecipe(context.Background(), recipe.ID.String(), domain.UpdateRecipeRequest{Name: "Stolen"}, uuid.New().String())

	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "UpdateRecipe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteRecipeByNonOwnerIsForbidden(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	recipe := testRecipe(uuid.New())
	repo.On("GetRecipeByID", mock.Anything, recipe.ID.String()).Return(recipe, nil)

	err := service.DeleteRecipe(context.Background(), recipe.ID.String(), uuid.New().String())

	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "DeleteRecipe", mock.Anything, mock.Anything)
}

func TestGetRecipesAnonymousViewerHasFalseFlags(t *testing.T) {
	repo := new(MockRecipeRepository)
	s3 := new(MockAwsS3)
	service := NewRecipeService(repo, s3)

	author := uuid.New()
	recipe := testRecipe(author)
	recipe.Author = &entities.User{ID: author, Username: "chef"}

	repo.On("GetRecipes", mock.Anything, mock.Anything, uuid.Nil, 1, 10).
		Return([]*entities.Recipe{recipe}, int64(1), nil)

	views, count, err := service.GetRecipes(context.Background(), domain.RecipeFilter{}, 1, 10, "")

	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
	if assert.Len(t, views, 1) {
		assert.False(t, views[0].IsFavorited)
		assert.False(t, views[0].IsInShoppingCart)
		assert.False(t, views[0].Author.IsSubscribed)
	}
	// No membership queries for anonymous viewers.
	repo.AssertNotCalled(t, "FavoriteRecipeIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestDecodeImageDataURI(t *testing.T) {
	data, contentType, err := decodeImageDataURI("data:image/png;base64,aGVsbG8=")
	assert.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, []byte("hello"), data)

	_, contentType, err = decodeImageDataURI("data:image/jpg;base64,aGVsbG8=")
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	_, _, err = decodeImageDataURI("not a data uri")
	assert.ErrorIs(t, err, domain.ErrInvalidImageFormat)

	_, _, err = decodeImageDataURI("data:image/png;base64,!!!")
	assert.ErrorIs(t, err, domain.ErrInvalidImageFormat)
}
