package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"foodgram/domain"
	"foodgram/entities"
)

type (
	CatalogService interface {
		GetTags(ctx context.Context) ([]domain.TagView, error)
		GetTag(ctx context.Context, id string) (domain.TagView, error)
		GetIngredients(ctx context.Context, search string, page, limit int) ([]domain.IngredientView, int64, error)
		GetIngredient(ctx context.Context, id string) (domain.IngredientView, error)
		ImportTags(ctx context.Context, inputs []domain.TagInput) (int, error)
		ImportIngredients(ctx context.Context, inputs []domain.IngredientInput) (int, error)
	}

	catalogService struct {
		catalogRepository CatalogRepository
		validator         *validator.Validate
	}
)

func NewCatalogService(catalogRepository CatalogRepository, validator *validator.Validate) CatalogService {
	return &catalogService{
		catalogRepository: catalogRepository,
		validator:         validator,
	}
}

func toTagView(tag *entities.Tag) domain.TagView {
	return domain.TagView{
		ID:    tag.ID.String(),
		Name:  tag.Name,
		Color: tag.Color,
		Slug:  tag.Slug,
	}
}

func toIngredientView(ingredient *entities.Ingredient) domain.IngredientView {
	return domain.IngredientView{
		ID:              ingredient.ID.String(),
		Name:            ingredient.Name,
		MeasurementUnit: ingredient.MeasurementUnit,
	}
}

func (s *catalogService) GetTags(ctx context.Context) ([]domain.TagView, error) {
	tags, err := s.catalogRepository.GetTags(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.TagView, 0, len(tags))
	for _, tag := range tags {
		views = append(views, toTagView(tag))
	}
	return views, nil
}

func (s *catalogService) GetTag(ctx context.Context, id string) (domain.TagView, error) {
	tag, err := s.catalogRepository.GetTagByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TagView{}, domain.ErrTagNotFound
		}
		return domain.TagView{}, err
	}
	return toTagView(tag), nil
}

func (s *catalogService) GetIngredients(ctx context.Context, search string, page, limit int) ([]domain.IngredientView, int64, error) {
	ingredients, count, err := s.catalogRepository.GetIngredients(ctx, search, page, limit)
	if err != nil {
		return nil, 0, err
	}

	views := make([]domain.IngredientView, 0, len(ingredients))
	for _, ingredient := range ingredients {
		views = append(views, toIngredientView(ingredient))
	}
	return views, count, nil
}

func (s *catalogService) GetIngredient(ctx context.Context, id string) (domain.IngredientView, error) {
	ingredient, err := s.catalogRepository.GetIngredientByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.IngredientView{}, domain.ErrIngredientNotFound
		}
		return domain.IngredientView{}, err
	}
	return toIngredientView(ingredient), nil
}

// ImportTags validates every row before anything is written; a single bad
// row aborts the whole import and is reported back with its content.
func (s *catalogService) ImportTags(ctx context.Context, inputs []domain.TagInput) (int, error) {
	tags := make([]*entities.Tag, 0, len(inputs))
	for i, input := range inputs {
		if err := s.validator.Struct(input); err != nil {
			return 0, fmt.Errorf("row %d (%s,%s,%s): %w", i+1, input.Name, input.Color, input.Slug, err)
		}
		tags = append(tags, &entities.Tag{
			ID:    uuid.New(),
			Name:  input.Name,
			Color: input.Color,
			Slug:  input.Slug,
		})
	}

	if err := s.catalogRepository.ImportTags(ctx, tags); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, domain.ErrDuplicateCatalog
		}
		return 0, err
	}
	return len(tags), nil
}

func (s *catalogService) ImportIngredients(ctx context.Context, inputs []domain.IngredientInput) (int, error) {
	ingredients := make([]*entities.Ingredient, 0, len(inputs))
	for i, input := range inputs {
		if err := s.validator.Struct(input); err != nil {
			return 0, fmt.Errorf("row %d (%s,%s): %w", i+1, input.Name, input.MeasurementUnit, err)
		}
		ingredients = append(ingredients, &entities.Ingredient{
			ID:              uuid.New(),
			Name:            input.Name,
			MeasurementUnit: input.MeasurementUnit,
		})
	}

	if err := s.catalogRepository.ImportIngredients(ctx, ingredients); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, domain.ErrDuplicateCatalog
		}
		return 0, err
	}
	return len(ingredients), nil
}
