package storage

import (
	"fmt"

	"github.com/rtcore/rtcore/driver"
)

const samplerPrefix = "storage: sampler: "

// Sampler wraps a driver.Sampler, created once and shared by every
// ImageView it is bound alongside.
type Sampler struct {
	native driver.Sampler
	param  driver.Sampling
}

// NewSampler creates a Sampler from the given sampling parameters.
func NewSampler(gpu driver.GPU, param driver.Sampling) (*Sampler, error) {
	s, err := gpu.NewSampler(&param)
	if err != nil {
		return nil, fmt.Errorf(samplerPrefix+"%w", err)
	}
	return &Sampler{native: s, param: param}, nil
}

// Native returns the underlying driver.Sampler.
func (s *Sampler) Native() driver.Sampler { return s.native }

// Param returns the sampling parameters this sampler was created
// from.
func (s *Sampler) Param() driver.Sampling { return s.param }

// Destroy releases the native sampler. Callers must ensure no
// in-flight command buffer still references it.
func (s *Sampler) Destroy() {
	if s.native != nil {
		s.native.Destroy()
		s.native = nil
	}
}
