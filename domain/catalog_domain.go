package domain

import (
	"errors"

	"github.com/google/uuid"
)

var (
	MessageSuccessGetTags          = "success get tags"
	MessageSuccessCreateTag        = "tag created successfully"
	MessageSuccessGetIngredients   = "success get ingredients"
	MessageSuccessCreateIngredient = "ingredient created successfully"

	MessageFailedGetTags          = "failed to get tags"
	MessageFailedCreateTag        = "failed to create tag"
	MessageFailedGetIngredients   = "failed to get ingredients"
	MessageFailedCreateIngredient = "failed to create ingredient"

	ErrTagNotFound        = errors.New("tag not found")
	ErrTagSlugTaken       = errors.New("tag slug already in use")
	ErrIngredientNotFound = errors.New("ingredient not found")
	ErrIngredientExists   = errors.New("ingredient with this name and unit already exists")
)

type (
	CreateTagRequest struct {
		Name  string `json:"name" validate:"required,max=100"`
		Color string `json:"color" validate:"required,max=100"`
		Slug  string `json:"slug" validate:"omitempty,max=100"`
	}

	TagResponse struct {
		ID    uuid.UUID `json:"id"`
		Name  string    `json:"name"`
		Color string    `json:"color"`
		Slug  string    `json:"slug"`
	}

	CreateIngredientRequest struct {
		Name            string `json:"name" validate:"required,max=100"`
		MeasurementUnit string `json:"measurement_unit" validate:"required,max=100"`
	}

	IngredientResponse struct {
		ID              uuid.UUID `json:"id"`
		Name            string    `json:"name"`
		MeasurementUnit string    `json:"measurement_unit"`
	}
)
