package generate

import (
	"errors"

	"sigtool/internal/host"
	"sigtool/internal/image"
	"sigtool/internal/scan"
	"sigtool/internal/signature"
)

// Incremental grows a signature from start one instruction at a time,
// rescanning im after each step with a two-match probe. Growth never reaches
// the end of fn.
func Incremental(fn host.Function, bin host.Binary, im *image.Image, start uint64, opts Options, obs Observer) (signature.Signature, error) {
	if obs == nil {
		obs = NopObserver{}
	}
	funcEnd := host.FunctionEnd(fn)
	limit := opts.iterationLimit()

	sig, err := Consume(fn, bin, bin, start)
	if err != nil {
		return nil, err
	}

	for iter := 0; !scan.IsUnique(sig, im); {
		sig, err = grow(sig, fn, bin, start, funcEnd)
		if errors.Is(err, ErrFuncLimitExceeded) {
			obs.Warn("hit function limit", "function", fn.Name(), "length", len(sig))
			obs.Alert(funcLimitAlert)
			return nil, err
		}
		if err != nil {
			return nil, err
		}

		iter++
		if iter >= limit {
			obs.Warn("hit iteration limit", "function", fn.Name(), "iterations", iter)
			obs.Alert(iterLimitAlert)
			return nil, ErrIterLimitExceeded
		}
	}
	return sig, nil
}
