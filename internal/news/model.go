package news

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CategoryEmergency = "Emergency"
	CategorySolution  = "Solution"
	CategorySensitive = "Sensitive"
	CategoryUnknown   = "Unknown"

	SubCategoryVerified         = "Verified"
	SubCategoryPotentialFlagged = "Potential Flagged"
	SubCategoryTrending         = "Trending"
	SubCategoryUnknown          = "Unknown"
)

type News struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Title          string             `bson:"title" json:"title" validate:"required"`
	Description    string             `bson:"description" json:"description" validate:"required"`
	Thumbnail      string             `bson:"thumbnail,omitempty" json:"thumbnail,omitempty" validate:"omitempty,url"`
	Files          []string           `bson:"files" json:"files" validate:"dive,url"`
	Category       string             `bson:"category,omitempty" json:"category,omitempty" validate:"omitempty,oneof=Emergency Solution Sensitive Unknown"`
	SubCategory    string             `bson:"sub_category,omitempty" json:"sub_category,omitempty" validate:"omitempty,oneof=Verified 'Potential Flagged' Trending Unknown"`
	Labels         []string           `bson:"labels" json:"labels"`
	Score          float64            `bson:"score" json:"score" validate:"gte=0,lte=100"`
	ScoreReasoning []string           `bson:"score_reasoning" json:"score_reasoning"`
	Insights       string             `bson:"insights,omitempty" json:"insights,omitempty"`
	TxnHash        string             `bson:"txnHash,omitempty" json:"txnHash,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// normalize replaces nil slices so documents never store or render null lists.
func (n *News) normalize() {
	if n.Files == nil {
		n.Files = []string{}
	}
	if n.Labels == nil {
		n.Labels = []string{}
	}
	if n.ScoreReasoning == nil {
		n.ScoreReasoning = []string{}
	}
}
