package recipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"regexp"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
	"foodgram/internal/utils/storage"
)

type (
	RecipeService interface {
		GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, viewerID string) ([]domain.RecipeView, int64, error)
		GetRecipeDetail(ctx context.Context, id string, viewerID string) (domain.RecipeView, error)
		CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeView, error)
		UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest, viewerID string) (domain.RecipeView, error)
		DeleteRecipe(ctx context.Context, id string, viewerID string) error
		UploadRecipeImage(ctx context.Context, id string, image *multipart.FileHeader, viewerID string) (string, error)

		AddFavorite(ctx context.Context, recipeID, viewerID string) (domain.RecipeSummary, error)
		RemoveFavorite(ctx context.Context, recipeID, viewerID string) error
		AddToCart(ctx context.Context, recipeID, viewerID string) (domain.RecipeSummary, error)
		RemoveFromCart(ctx context.Context, recipeID, viewerID string) error

		BuildShoppingList(ctx context.Context, viewerID string) ([]string, error)
	}

	recipeService struct {
		recipeRepository RecipeRepository
		s3               storage.AwsS3
	}
)

func NewRecipeService(recipeRepository RecipeRepository, s3 storage.AwsS3) RecipeService {
	return &recipeService{
		recipeRepository: recipeRepository,
		s3:               s3,
	}
}

var dataURIPattern = regexp.MustCompile(`^data:image/(png|jpe?g|webp);base64,(.+)$`)

func decodeImageDataURI(image string) ([]byte, string, error) {
	match := dataURIPattern.FindStringSubmatch(image)
	if match == nil {
		return nil, "", domain.ErrInvalidImageFormat
	}

	ext := match[1]
	if ext == "jpg" {
		ext = "jpeg"
	}

	data, err := base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return nil, "", domain.ErrInvalidImageFormat
	}
	return data, "image/" + ext, nil
}

func parseUUIDs(ids []string) ([]uuid.UUID, error) {
	parsed := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, domain.ErrParseUUID
		}
		parsed = append(parsed, u)
	}
	return parsed, nil
}

// resolveTags loads every referenced tag and fails if any id is unknown, so
// nothing is persisted against a dangling catalog reference.
func (s *recipeService) resolveTags(ctx context.Context, ids []string) ([]*entities.Tag, error) {
	tagIDs, err := parseUUIDs(ids)
	if err != nil {
		return nil, err
	}

	tags, err := s.recipeRepository.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]bool, len(tags))
	for _, tag := range tags {
		found[tag.ID] = true
	}
	for _, id := range tagIDs {
		if !found[id] {
			return nil, domain.ErrTagNotFound
		}
	}
	return tags, nil
}

func (s *recipeService) resolveLines(ctx context.Context, recipeID uuid.UUID, inputs []domain.RecipeIngredientInput) ([]*entities.RecipeIngredient, error) {
	ids := make([]string, 0, len(inputs))
	for _, input := range inputs {
		ids = append(ids, input.ID)
	}
	ingredientIDs, err := parseUUIDs(ids)
	if err != nil {
		return nil, err
	}

	ingredients, err := s.recipeRepository.GetIngredientsByIDs(ctx, ingredientIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]bool, len(ingredients))
	for _, ingredient := range ingredients {
		found[ingredient.ID] = true
	}

	lines := make([]*entities.RecipeIngredient, 0, len(inputs))
	for i, input := range inputs {
		if !found[ingredientIDs[i]] {
			return nil, domain.ErrIngredientNotFound
		}
		lines = append(lines, &entities.RecipeIngredient{
			ID:           uuid.New(),
			RecipeID:     recipeID,
			IngredientID: ingredientIDs[i],
			Amount:       input.Amount,
			Position:     i,
		})
	}
	return lines, nil
}

// buildViews decorates a page of recipes with the viewer's derived booleans
// using one membership query per relation instead of one per row.
func (s *recipeService) buildViews(ctx context.Context, recipes []*entities.Recipe, viewerID string) ([]domain.RecipeView, error) {
	favorited := map[uuid.UUID]bool{}
	inCart := map[uuid.UUID]bool{}
	subscribed := map[uuid.UUID]bool{}

	if viewerID != "" {
		viewerUUID, err := uuid.Parse(viewerID)
		if err != nil {
			return nil, domain.ErrParseUUID
		}

		recipeIDs := make([]uuid.UUID, 0, len(recipes))
		authorIDs := make([]uuid.UUID, 0, len(recipes))
		for _, recipe := range recipes {
			recipeIDs = append(recipeIDs, recipe.ID)
			authorIDs = append(authorIDs, recipe.AuthorID)
		}

		if favorited, err = s.recipeRepository.FavoriteRecipeIDs(ctx, viewerUUID, recipeIDs); err != nil {
			return nil, err
		}
		if inCart, err = s.recipeRepository.CartRecipeIDs(ctx, viewerUUID, recipeIDs); err != nil {
			return nil, err
		}
		if subscribed, err = s.recipeRepository.SubscribedAuthorIDs(ctx, viewerUUID, authorIDs); err != nil {
			return nil, err
		}
	}

	views := make([]domain.RecipeView, 0, len(recipes))
	for _, recipe := range recipes {
		view := domain.RecipeView{
			ID:               recipe.ID.String(),
			IsFavorited:      favorited[recipe.ID],
			IsInShoppingCart: inCart[recipe.ID],
			Name:             recipe.Name,
			ImageURL:         recipe.ImageURL,
			Text:             recipe.Text,
			CookingTime:      recipe.CookingTime,
			CreatedAt:        recipe.CreatedAt,
		}

		if recipe.Author != nil {
			view.Author = domain.UserView{
				ID:           recipe.Author.ID.String(),
				Email:        recipe.Author.Email,
				Username:     recipe.Author.Username,
				FirstName:    recipe.Author.FirstName,
				LastName:     recipe.Author.LastName,
				IsSubscribed: subscribed[recipe.AuthorID],
			}
		}

		view.Tags = make([]domain.TagView, 0, len(recipe.Tags))
		for _, tag := range recipe.Tags {
			view.Tags = append(view.Tags, domain.TagView{
				ID:    tag.ID.String(),
				Name:  tag.Name,
				Color: tag.Color,
				Slug:  tag.Slug,
			})
		}

		view.Ingredients = make([]domain.RecipeIngredientView, 0, len(recipe.Ingredients))
		for _, line := range recipe.Ingredients {
			ingredientView := domain.RecipeIngredientView{
				ID:     line.IngredientID.String(),
				Amount: line.Amount,
			}
			if line.Ingredient != nil {
				ingredientView.Name = line.Ingredient.Name
				ingredientView.MeasurementUnit = line.Ingredient.MeasurementUnit
			}
			view.Ingredients = append(view.Ingredients, ingredientView)
		}

		views = append(views, view)
	}
	return views, nil
}

func (s *recipeService) GetRecipes(ctx context.Context, filter domain.RecipeFilter, page, limit int, viewerID string) ([]domain.RecipeView, int64, error) {
	viewerUUID := uuid.Nil
	if viewerID != "" {
		parsed, err := uuid.Parse(viewerID)
		if err != nil {
			return nil, 0, domain.ErrParseUUID
		}
		viewerUUID = parsed
	}

	recipes, count, err := s.recipeRepository.GetRecipes(ctx, filter, viewerUUID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	views, err := s.buildViews(ctx, recipes, viewerID)
	if err != nil {
		return nil, 0, err
	}
	return views, count, nil
}

func (s *recipeService) GetRecipeDetail(ctx context.Context, id string, viewerID string) (domain.RecipeView, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeView{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeView{}, err
	}

	views, err := s.buildViews(ctx, []*entities.Recipe{recipe}, viewerID)
	if err != nil {
		return domain.RecipeView{}, err
	}
	return views[0], nil
}

func (s *recipeService) CreateRecipe(ctx context.Context, req domain.CreateRecipeRequest, authorID string) (domain.RecipeView, error) {
	authorUUID, err := uuid.Parse(authorID)
	if err != nil {
		return domain.RecipeView{}, domain.ErrParseUUID
	}

	recipeID := uuid.New()

	tags, err := s.resolveTags(ctx, req.Tags)
	if err != nil {
		return domain.RecipeView{}, err
	}
	lines, err := s.resolveLines(ctx, recipeID, req.Ingredients)
	if err != nil {
		return domain.RecipeView{}, err
	}

	data, contentType, err := decodeImageDataURI(req.Image)
	if err != nil {
		return domain.RecipeView{}, err
	}
	fileName := fmt.Sprintf("recipe-%s", recipeID.String())
	objectKey, err := s.s3.UploadBytes(fileName, data, contentType, "recipes", storage.AllowImage...)
	if err != nil {
		return domain.RecipeView{}, err
	}

	recipe := &entities.Recipe{
		ID:          recipeID,
		AuthorID:    authorUUID,
		Name:        req.Name,
		Text:        req.Text,
		ImageURL:    s.s3.GetPublicLinkKey(objectKey),
		CookingTime: req.CookingTime,
	}

	if err := s.recipeRepository.CreateRecipe(ctx, recipe, lines, tags); err != nil {
		return domain.RecipeView{}, err
	}

	return s.GetRecipeDetail(ctx, recipeID.String(), authorID)
}

func (s *recipeService) UpdateRecipe(ctx context.Context, id string, req domain.UpdateRecipeRequest, viewerID string) (domain.RecipeView, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeView{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeView{}, err
	}

	if recipe.AuthorID.String() != viewerID {
		return domain.RecipeView{}, domain.ErrForbidden
	}

	if req.Name != "" {
		recipe.Name = req.Name
	}
	if req.Text != "" {
		recipe.Text = req.Text
	}
	if req.CookingTime > 0 {
		recipe.CookingTime = req.CookingTime
	}

	if req.Image != "" {
		data, contentType, err := decodeImageDataURI(req.Image)
		if err != nil {
			return domain.RecipeView{}, err
		}
		fileName := fmt.Sprintf("recipe-%s", recipe.ID.String())
		objectKey, err := s.s3.UploadBytes(fileName, data, contentType, "recipes", storage.AllowImage...)
		if err != nil {
			return domain.RecipeView{}, err
		}
		recipe.ImageURL = s.s3.GetPublicLinkKey(objectKey)
	}

	var tags []*entities.Tag
	if req.Tags != nil {
		if tags, err = s.resolveTags(ctx, *req.Tags); err != nil {
			return domain.RecipeView{}, err
		}
	}

	var lines []*entities.RecipeIngredient
	if req.Ingredients != nil {
		if lines, err = s.resolveLines(ctx, recipe.ID, *req.Ingredients); err != nil {
			return domain.RecipeView{}, err
		}
	}

	// Detach loaded associations so Save only touches recipe columns; the
	// repository handles the replace of lines and tag links itself.
	recipe.Author = nil
	recipe.Tags = nil
	recipe.Ingredients = nil

	if err := s.recipeRepository.UpdateRecipe(ctx, recipe, lines, tags); err != nil {
		return domain.RecipeView{}, err
	}

	return s.GetRecipeDetail(ctx, id, viewerID)
}

func (s *recipeService) DeleteRecipe(ctx context.Context, id string, viewerID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	if recipe.AuthorID.String() != viewerID {
		return domain.ErrForbidden
	}

	if recipe.ImageURL != "" {
		if objectKey := s.s3.GetObjectKeyFromLink(recipe.ImageURL); objectKey != "" {
			_ = s.s3.DeleteFile(objectKey)
		}
	}

	return s.recipeRepository.DeleteRecipe(ctx, recipe.ID)
}

func (s *recipeService) UploadRecipeImage(ctx context.Context, id string, image *multipart.FileHeader, viewerID string) (string, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrRecipeNotFound
		}
		return "", err
	}

	if recipe.AuthorID.String() != viewerID {
		return "", domain.ErrForbidden
	}

	fileName := fmt.Sprintf("recipe-%s", recipe.ID.String())
	var objectKey string

	if existingKey := s.s3.GetObjectKeyFromLink(recipe.ImageURL); existingKey != "" {
		objectKey, err = s.s3.UpdateFile(existingKey, image, storage.AllowImage...)
	} else {
		objectKey, err = s.s3.UploadFile(fileName, image, "recipes", storage.AllowImage...)
	}
	if err != nil {
		return "", err
	}

	imageURL := s.s3.GetPublicLinkKey(objectKey)
	if err := s.recipeRepository.UpdateRecipeImage(ctx, recipe.ID, imageURL); err != nil {
		return "", err
	}
	return imageURL, nil
}

func (s *recipeService) recipeSummary(recipe *entities.Recipe) domain.RecipeSummary {
	return domain.RecipeSummary{
		ID:          recipe.ID.String(),
		Name:        recipe.Name,
		ImageURL:    recipe.ImageURL,
		CookingTime: recipe.CookingTime,
	}
}

func (s *recipeService) addRelation(ctx context.Context, recipeID, viewerID string, create func(userID, recipeID uuid.UUID) error) (domain.RecipeSummary, error) {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.RecipeSummary{}, domain.ErrRecipeNotFound
		}
		return domain.RecipeSummary{}, err
	}

	viewerUUID, err := uuid.Parse(viewerID)
	if err != nil {
		return domain.RecipeSummary{}, domain.ErrParseUUID
	}

	if err := create(viewerUUID, recipe.ID); err != nil {
		return domain.RecipeSummary{}, err
	}
	return s.recipeSummary(recipe), nil
}

func (s *recipeService) AddFavorite(ctx context.Context, recipeID, viewerID string) (domain.RecipeSummary, error) {
	return s.addRelation(ctx, recipeID, viewerID, func(userID, recipeID uuid.UUID) error {
		favorite := &entities.Favorite{ID: uuid.New(), UserID: userID, RecipeID: recipeID}
		if err := s.recipeRepository.CreateFavorite(ctx, favorite); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyFavorited
			}
			return err
		}
		return nil
	})
}

func (s *recipeService) RemoveFavorite(ctx context.Context, recipeID, viewerID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	viewerUUID, err := uuid.Parse(viewerID)
	if err != nil {
		return domain.ErrParseUUID
	}

	affected, err := s.recipeRepository.DeleteFavorite(ctx, viewerUUID, recipe.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFavorited
	}
	return nil
}

func (s *recipeService) AddToCart(ctx context.Context, recipeID, viewerID string) (domain.RecipeSummary, error) {
	return s.addRelation(ctx, recipeID, viewerID, func(userID, recipeID uuid.UUID) error {
		entry := &entities.CartEntry{ID: uuid.New(), UserID: userID, RecipeID: recipeID}
		if err := s.recipeRepository.CreateCartEntry(ctx, entry); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrAlreadyInCart
			}
			return err
		}
		return nil
	})
}

func (s *recipeService) RemoveFromCart(ctx context.Context, recipeID, viewerID string) error {
	recipe, err := s.recipeRepository.GetRecipeByID(ctx, recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrRecipeNotFound
		}
		return err
	}

	viewerUUID, err := uuid.Parse(viewerID)
	if err != nil {
		return domain.ErrParseUUID
	}

	affected, err := s.recipeRepository.DeleteCartEntry(ctx, viewerUUID, recipe.ID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotInCart
	}
	return nil
}

// BuildShoppingList merges the ingredient lines of every recipe in the
// viewer's cart. Lines sharing an ingredient name and unit are summed;
// output keeps first-encounter order, no re-sorting. An empty cart yields
// an empty list, never an error.
func (s *recipeService) BuildShoppingList(ctx context.Context, viewerID string) ([]string, error) {
	viewerUUID, err := uuid.Parse(viewerID)
	if err != nil {
		return nil, domain.ErrParseUUID
	}

	lines, err := s.recipeRepository.CartIngredientLines(ctx, viewerUUID)
	if err != nil {
		return nil, err
	}

	return AggregateLines(lines), nil
}

type ingredientKey struct {
	name string
	unit string
}

// AggregateLines folds ingredient lines into "{name} ({unit}) - {total}"
// strings, summing amounts per name+unit pair in first-encounter order.
func AggregateLines(lines []*entities.RecipeIngredient) []string {
	totals := make(map[ingredientKey]int, len(lines))
	order := make([]ingredientKey, 0, len(lines))

	for _, line := range lines {
		if line.Ingredient == nil {
			continue
		}
		key := ingredientKey{name: line.Ingredient.Name, unit: line.Ingredient.MeasurementUnit}
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += line.Amount
	}

	out := make([]string, 0, len(order))
	for _, key := range order {
		out = append(out, fmt.Sprintf("%s (%s) - %d", key.name, key.unit, totals[key]))
	}
	return out
}
