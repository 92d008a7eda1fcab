package model

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model, overriding the imported name.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithImportedModel is an option builder that sets the import data backing the Model.
// The fit transform is derived from the imported bounds; apply WithFitTransform afterwards to override it.
//
// Parameters:
//   - imported: the imported model
//
// Returns:
//   - ModelBuilderOption: a function that applies the imported model option to a model
func WithImportedModel(imported *ImportedModel) ModelBuilderOption {
	return func(m *model) {
		if imported == nil {
			return
		}
		m.imported = imported
		m.fit = imported.Bounds.FitTransform()
	}
}

// WithFitTransform is an option builder that manually sets the fit transform.
//
// Parameters:
//   - fit: the transform to use
//
// Returns:
//   - ModelBuilderOption: a function that applies the fit transform option to a model
func WithFitTransform(fit mgl32.Mat4) ModelBuilderOption {
	return func(m *model) {
		m.fit = fit
	}
}
