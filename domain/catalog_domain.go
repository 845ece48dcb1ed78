package domain

import (
	"errors"
)

var (
	MessageSuccessGetTags        = "success get tags"
	MessageSuccessGetIngredients = "success get ingredients"

	MessageFailedGetTags        = "failed to get tags"
	MessageFailedGetIngredients = "failed to get ingredients"

	ErrTagNotFound        = errors.New("tag not found")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrDuplicateCatalog   = errors.New("catalog entry already exists")
)

type (
	TagView struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
		Slug  string `json:"slug"`
	}

	IngredientView struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		MeasurementUnit string `json:"measurement_unit"`
	}

	// Catalog import inputs, consumed by cmd/importcsv.
	TagInput struct {
		Name  string `validate:"required,max=200"`
		Color string `validate:"required,len=7,startswith=#"`
		Slug  string `validate:"required,max=200"`
	}

	IngredientInput struct {
		Name            string `validate:"required,max=200"`
		MeasurementUnit string `validate:"required,max=200"`
	}
)
