package news

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"newschain/internal/apperr"
)

func TestValidate_RequiredFields(t *testing.T) {
	err := Validate(&News{})
	require.Error(t, err)

	vErrs, ok := IsValidation(err)
	require.True(t, ok)

	assert.ElementsMatch(t, []apperr.FieldError{
		{Field: "title", Message: "Please enter title"},
		{Field: "description", Message: "Please enter description"},
	}, FieldErrors(vErrs))
}

func TestValidate_Enums(t *testing.T) {
	n := &News{Title: "t", Description: "d", Category: "Gossip", SubCategory: SubCategoryPotentialFlagged}

	vErrs, ok := IsValidation(Validate(n))
	require.True(t, ok)

	fields := FieldErrors(vErrs)
	require.Len(t, fields, 1, "quoted enum value with a space is accepted")
	assert.Equal(t, "category", fields[0].Field)
	assert.Equal(t, "`Gossip` is not a valid enum value for path `category`.", fields[0].Message)
}

func TestValidate_FileURLs(t *testing.T) {
	n := &News{Title: "t", Description: "d", Files: []string{"https://gw.test/ipfs/bafy", "not a url"}}

	vErrs, ok := IsValidation(Validate(n))
	require.True(t, ok)

	fields := FieldErrors(vErrs)
	require.Len(t, fields, 1)
	assert.Equal(t, "files[1]", fields[0].Field)
}

func TestValidate_Score(t *testing.T) {
	n := &News{Title: "t", Description: "d", Score: 140}

	vErrs, ok := IsValidation(Validate(n))
	require.True(t, ok)
	assert.Equal(t, "score", FieldErrors(vErrs)[0].Field)

	n.Score = 100
	assert.NoError(t, Validate(n))
}

func TestNormalize(t *testing.T) {
	n := &News{}
	n.normalize()

	assert.NotNil(t, n.Files)
	assert.NotNil(t, n.Labels)
	assert.NotNil(t, n.ScoreReasoning)
}

func TestDocumentValidationErrors(t *testing.T) {
	details, err := bson.Marshal(bson.M{
		"failingDocumentId": 1,
		"details": bson.M{
			"operatorName": "$jsonSchema",
			"schemaRulesNotSatisfied": bson.A{
				bson.M{"operatorName": "required", "missingProperties": bson.A{"description"}},
				bson.M{"operatorName": "properties", "propertiesNotSatisfied": bson.A{
					bson.M{"propertyName": "score"},
				}},
			},
		},
	})
	require.NoError(t, err)

	writeErr := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 121, Message: "Document failed validation", Details: details}}}

	fields, ok := DocumentValidationErrors(writeErr)
	require.True(t, ok)
	assert.Equal(t, []apperr.FieldError{
		{Field: "description", Message: "Please enter description"},
		{Field: "score", Message: "Invalid value for score"},
	}, fields)

	_, ok = DocumentValidationErrors(errors.New("boom"))
	assert.False(t, ok)

	_, ok = DocumentValidationErrors(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}})
	assert.False(t, ok)
}
