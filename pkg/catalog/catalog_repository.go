package catalog

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/entities"
)

type (
	CatalogRepository interface {
		GetTags(ctx context.Context) ([]*entities.Tag, error)
		GetTagByID(ctx context.Context, id string) (*entities.Tag, error)
		GetIngredients(ctx context.Context, search string, page, limit int) ([]*entities.Ingredient, int64, error)
		GetIngredientByID(ctx context.Context, id string) (*entities.Ingredient, error)
		ImportTags(ctx context.Context, tags []*entities.Tag) error
		ImportIngredients(ctx context.Context, ingredients []*entities.Ingredient) error
	}

	catalogRepository struct {
		db *gorm.DB
	}
)

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetTags(ctx context.Context) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	if err := r.db.WithContext(ctx).Order("name asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *catalogRepository) GetTagByID(ctx context.Context, id string) (*entities.Tag, error) {
	var tag entities.Tag
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// GetIngredients searches by name; prefix matches sort before substring
// matches, then alphabetically.
func (r *catalogRepository) GetIngredients(ctx context.Context, search string, page, limit int) ([]*entities.Ingredient, int64, error) {
	var ingredients []*entities.Ingredient
	var count int64
	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Model(&entities.Ingredient{})
	if search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if search != "" {
		query = query.Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN name ILIKE ? THEN 0 ELSE 1 END, name asc",
			Vars:               []interface{}{search + "%"},
			WithoutParentheses: true,
		}})
	} else {
		query = query.Order("name asc")
	}

	if err := query.
		Offset(offset).
		Limit(limit).
		Find(&ingredients).Error; err != nil {
		return nil, 0, err
	}

	return ingredients, count, nil
}

func (r *catalogRepository) GetIngredientByID(ctx context.Context, id string) (*entities.Ingredient, error) {
	var ingredient entities.Ingredient
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ingredient).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

// ImportTags writes the whole batch in one transaction: either every row is
// imported or none is.
func (r *catalogRepository) ImportTags(ctx context.Context, tags []*entities.Tag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tag := range tags {
			if err := tx.Create(tag).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *catalogRepository) ImportIngredients(ctx context.Context, ingredients []*entities.Ingredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ingredient := range ingredients {
			if err := tx.Create(ingredient).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
