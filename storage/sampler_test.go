package storage

import (
	"testing"

	"github.com/rtcore/rtcore/driver"
	"github.com/rtcore/rtcore/internal/faketest"
)

func TestNewSamplerRoundTripsParam(t *testing.T) {
	gpu := faketest.NewGPU()
	param := driver.Sampling{Min: driver.FLinear, Mag: driver.FLinear, Mipmap: driver.FNoMipmap}
	s, err := NewSampler(gpu, param)
	if err != nil {
		t.Fatalf("NewSampler:\nhave %v\nwant nil", err)
	}
	if got := s.Param(); got != param {
		t.Fatalf("Param:\nhave %+v\nwant %+v", got, param)
	}
}
