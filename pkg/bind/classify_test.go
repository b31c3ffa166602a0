package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/clangbind/pkg/ast"
)

func TestClassify_EveryKindIsClassified(t *testing.T) {
	t.Parallel()

	for _, k := range ast.AllKinds() {
		assert.True(t, classified(k), "kind %s has no classification", k)
	}

	assert.Len(t, classification, len(ast.AllKinds()))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CategoryRecord, Classify(ast.KindClassDecl))
	assert.Equal(t, CategoryRecurse, Classify(ast.KindUnionDecl))
	assert.Equal(t, CategoryUnsupported, Classify(ast.KindUnexposedDecl))
	assert.Equal(t, CategoryIgnore, Classify(ast.KindDestructor))
	assert.Equal(t, CategoryUnsupported, Classify(ast.Kind(250)))
	assert.Equal(t, "constructor", CategoryConstructor.String())
}

func TestIsOperator(t *testing.T) {
	t.Parallel()

	assert.True(t, isOperator("operator=="))
	assert.True(t, isOperator("operator new"))
	assert.False(t, isOperator("operatorCount"))
	assert.False(t, isOperator("operator"))
	assert.False(t, isOperator("run"))
}
