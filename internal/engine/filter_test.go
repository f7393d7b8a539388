package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/dwinston/dbaudit/internal/store"
)

func TestComparisonTranslator_Translate(t *testing.T) {
	tr := NewComparisonTranslator()

	got, err := tr.Translate("energy > 0, state = done, nsites <= 100")
	require.NoError(t, err)
	assert.Equal(t, store.Filter{
		"energy": bson.M{"$gt": int64(0)},
		"state":  "done",
		"nsites": bson.M{"$lte": int64(100)},
	}, got)
}

func TestComparisonTranslator_Scalars(t *testing.T) {
	tr := NewComparisonTranslator()

	got, err := tr.Translate(`flag = true, ratio != 0.5, name = "42"`)
	require.NoError(t, err)
	assert.Equal(t, store.Filter{
		"flag":  true,
		"ratio": bson.M{"$ne": 0.5},
		"name":  "42",
	}, got)
}

func TestComparisonTranslator_Errors(t *testing.T) {
	tr := NewComparisonTranslator()

	for _, expr := range []string{"", "energy >", "energy ~ 5", "energy greater than 5 now"} {
		t.Run(expr, func(t *testing.T) {
			_, err := tr.Translate(expr)
			assert.Error(t, err)
		})
	}
}
