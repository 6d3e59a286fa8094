package pinning

import (
	"bytes"
	"context"
	"fmt"
	"io"

	shell "github.com/ipfs/go-ipfs-api"
	"go.uber.org/zap"

	"newschain/internal/logging"
)

// adder is the part of the IPFS shell used for pinning.
type adder interface {
	Add(r io.Reader, options ...shell.AddOpts) (string, error)
}

type kuboClient struct {
	sh     adder
	logger *zap.Logger
}

// NewKuboClient returns a Pinner that adds and pins files on a self-hosted
// Kubo node through its RPC API.
func NewKuboClient(apiURL string, logger *zap.Logger) Pinner {
	return &kuboClient{
		sh:     shell.NewShell(apiURL),
		logger: logging.OrNop(logger),
	}
}

// PinFile adds the file with pinning enabled. The IPFS shell has no context
// support, so ctx is only checked before the call.
func (c *kuboClient) PinFile(ctx context.Context, u Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw, err := c.sh.Add(bytes.NewReader(u.Data), shell.Pin(true), shell.CidVersion(1))
	if err != nil {
		return "", fmt.Errorf("ipfs add %q: %w", u.Name, err)
	}

	id, err := normalizeCID(raw)
	if err != nil {
		return "", fmt.Errorf("ipfs add %q: %w", u.Name, err)
	}

	c.logger.Debug("file pinned", zap.String("name", u.Name), zap.String("cid", id))
	return id, nil
}
