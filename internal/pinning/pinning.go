package pinning

import (
	"context"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
)

// Upload is one file received from the client, held in memory.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Pinner stores a file on IPFS and returns its content identifier.
type Pinner interface {
	PinFile(ctx context.Context, u Upload) (string, error)
}

// GatewayURL builds the public URL of cid on the given gateway.
func GatewayURL(gateway, c string) string {
	return strings.TrimRight(gateway, "/") + "/ipfs/" + c
}

// normalizeCID checks that raw parses as a CID and returns its canonical string form.
func normalizeCID(raw string) (string, error) {
	c, err := cid.Decode(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid cid %q: %w", raw, err)
	}
	return c.String(), nil
}
