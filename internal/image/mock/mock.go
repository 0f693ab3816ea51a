package mock

import (
	"context"
	"fmt"

	"github.com/DMarby/image-api/internal/image"
)

// Processor is a mock image processor that fails every task with Err, or with an internal error when Err is nil
type Processor struct {
	Err error
}

// ProcessImage returns the configured error
func (p *Processor) ProcessImage(ctx context.Context, data []byte, task image.Task) (*image.Result, error) {
	if p.Err != nil {
		return nil, p.Err
	}

	return nil, image.Internal(fmt.Errorf("processing error"), "error processing image")
}
