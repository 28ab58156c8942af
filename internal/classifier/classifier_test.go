package classifier_test

import (
	"context"
	"pipegen-cli/internal/classifier"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassifier_Category(t *testing.T) {
	t.Parallel()

	c := classifier.NewClassifier(nil, zap.NewNop())

	tests := []struct {
		name      string
		framework string
		expected  string
	}{
		{name: "frontend", framework: "react", expected: classifier.CategoryFrontend},
		{name: "meta framework", framework: "nextjs", expected: classifier.CategoryFrontend},
		{name: "python backend", framework: "django", expected: classifier.CategoryBackend},
		{name: "go backend", framework: "gin", expected: classifier.CategoryBackend},
		{name: "java backend", framework: "spring", expected: classifier.CategoryBackend},
		{name: "mobile wins over its frontend prefix", framework: "react-native", expected: classifier.CategoryMobile},
		{name: "flutter", framework: "flutter", expected: classifier.CategoryMobile},
		{name: "unknown", framework: "celery", expected: ""},
		{name: "empty", framework: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, c.Category(tt.framework))
		})
	}
}

func TestClassifier_ExtraPatterns(t *testing.T) {
	t.Parallel()

	c := classifier.NewClassifier(map[string][]string{
		classifier.CategoryFrontend: {"@company/ui-*"},
		classifier.CategoryBackend:  {"company-"},
		classifier.CategoryMobile:   {".mobile"},
		"desktop":                   {"electron"},
	}, zap.NewNop())

	assert.Equal(t, classifier.CategoryFrontend, c.Category("@company/ui-kit"))
	assert.Equal(t, classifier.CategoryBackend, c.Category("company-gateway"))
	assert.Equal(t, classifier.CategoryMobile, c.Category("shop.mobile"))
	assert.Empty(t, c.Category("electron"), "unknown categories are ignored")
}

func TestClassifier_Classify(t *testing.T) {
	t.Parallel()

	c := classifier.NewClassifier(nil, zap.NewNop())

	delta := c.Classify(context.Background(), []string{"react", "express", "react-native", "celery", "react"})

	assert.Equal(t, []string{"react"}, delta.FrontendFrameworks)
	assert.Equal(t, []string{"express"}, delta.BackendFrameworks)
	assert.Equal(t, []string{"react-native"}, delta.MobileFrameworks)
	assert.Empty(t, delta.Frameworks, "classification never adds frameworks")
}

func TestClassifier_ClassifyExactlyOneCategory(t *testing.T) {
	t.Parallel()

	c := classifier.NewClassifier(map[string][]string{
		classifier.CategoryFrontend: {"django"},
	}, zap.NewNop())

	delta := c.Classify(context.Background(), []string{"django"})

	assert.Equal(t, []string{"django"}, delta.BackendFrameworks)
	assert.Empty(t, delta.FrontendFrameworks)
}

func TestClassifier_FilterLanguages(t *testing.T) {
	t.Parallel()

	c := classifier.NewClassifier(nil, zap.NewNop())

	kept, dropped := c.FilterLanguages([]string{"python", "kotlin", "rust", "Java", "golang", "typescript", "rust"})

	assert.Equal(t, []string{"python", "java", "go", "typescript"}, kept)
	assert.Equal(t, []string{"rust"}, dropped)
}
