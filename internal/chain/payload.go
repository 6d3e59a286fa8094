package chain

import (
	"math"

	"github.com/aptos-labs/aptos-go-sdk/bcs"
)

const (
	ModuleName         = "news"
	CreateNewsFunction = "create_news"
	CollectionResource = "NewsCollection"
)

// NewsPayload holds the arguments of news::create_news, in call order after the signer.
type NewsPayload struct {
	Title       string
	Description string
	Thumbnail   string
	Files       []string
	Category    string
	SubCategory string
	Labels      []string
	Score       float64
}

// Args BCS-encodes the payload as
// (String, String, String, vector<String>, String, String, vector<String>, u64).
func (p NewsPayload) Args() ([][]byte, error) {
	args := make([][]byte, 0, 8)

	for _, s := range []string{p.Title, p.Description, p.Thumbnail} {
		b, err := serializeString(s)
		if err != nil {
			return nil, err
		}
		args = append(args, b)
	}

	files, err := serializeStrings(p.Files)
	if err != nil {
		return nil, err
	}
	args = append(args, files)

	for _, s := range []string{p.Category, p.SubCategory} {
		b, err := serializeString(s)
		if err != nil {
			return nil, err
		}
		args = append(args, b)
	}

	labels, err := serializeStrings(p.Labels)
	if err != nil {
		return nil, err
	}
	args = append(args, labels)

	score, err := bcs.SerializeU64(scoreToU64(p.Score))
	if err != nil {
		return nil, err
	}
	return append(args, score), nil
}

func serializeString(s string) ([]byte, error) {
	return bcs.SerializeSingle(func(ser *bcs.Serializer) {
		ser.WriteString(s)
	})
}

func serializeStrings(list []string) ([]byte, error) {
	return bcs.SerializeSingle(func(ser *bcs.Serializer) {
		bcs.SerializeSequenceWithFunction(list, ser, func(ser *bcs.Serializer, s string) {
			ser.WriteString(s)
		})
	})
}

func scoreToU64(score float64) uint64 {
	if score <= 0 || math.IsNaN(score) {
		return 0
	}
	return uint64(math.Round(score))
}
